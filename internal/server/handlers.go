package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"fx-analyzer/internal/types"
)

const (
	defaultPair     = "EURUSD=X"
	defaultInterval = "1h"
	defaultPeriod   = "7d"
	maxHistoryLimit = 100
)

type analyzeRequest struct {
	Pair     string `json:"pair"`
	Interval string `json:"interval"`
	Period   string `json:"period"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.opts.Version})
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "FX Analyzer API - Ready for Trading Analysis"})
}

func (s *Server) analyze(c *gin.Context) {
	var body analyzeRequest
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "detail": err.Error()})
		return
	}

	req := types.AnalysisRequest{
		Instrument: strings.TrimSpace(body.Pair),
		Interval:   strings.TrimSpace(body.Interval),
		Period:     strings.TrimSpace(body.Period),
	}
	if req.Instrument == "" {
		req.Instrument = defaultPair
	}
	if req.Interval == "" {
		req.Interval = defaultInterval
	}
	if req.Period == "" {
		req.Period = defaultPeriod
	}

	res, err := s.analyzer.Analyze(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, types.ErrInvalidRequest):
			status = http.StatusBadRequest
		case errors.Is(err, types.ErrDataUnavailable):
			status = http.StatusServiceUnavailable
		}
		if res == nil {
			res = &types.AnalysisResult{
				Request:   req,
				Timestamp: time.Now(),
				Final:     types.FinalSignal{Direction: types.Hold},
				Error:     err.Error(),
			}
		}
		c.JSON(status, toResponse(res, false))
		return
	}

	c.JSON(http.StatusOK, toResponse(res, true))
}

func (s *Server) getHistory(c *gin.Context) {
	limit := 10
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	out := HistoryResponse{Results: []AnalysisResponse{}}
	if s.history != nil {
		results, err := s.history.List(c.Request.Context(), c.Query("pair"), limit)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get history", "detail": err.Error()})
			return
		}
		for i := range results {
			out.Results = append(out.Results, toResponse(&results[i], false))
		}
	}
	out.Count = len(out.Results)
	c.JSON(http.StatusOK, out)
}

func (s *Server) getPairs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pairs": majorPairs})
}

func (s *Server) getNews(c *gin.Context) {
	var keywords []string
	for _, k := range strings.Split(c.Query("keywords"), ",") {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}

	summary, headlines := s.analyzer.AnalyzeNews(c.Request.Context(), keywords)
	if headlines == nil {
		headlines = []string{}
	}
	c.JSON(http.StatusOK, NewsResponse{
		Headlines: headlines,
		Sentiment: summary,
		Timestamp: formatTime(time.Now()),
	})
}
