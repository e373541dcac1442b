package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"fx-analyzer/internal/types"
)

type fakeAnalyzer struct {
	lastReq      types.AnalysisRequest
	lastKeywords []string
	result       *types.AnalysisResult
	err          error
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req types.AnalysisRequest) (*types.AnalysisResult, error) {
	f.lastReq = req
	if f.err != nil {
		return &types.AnalysisResult{
			ID:        "failed",
			Request:   req,
			Timestamp: time.Now(),
			Final:     types.FinalSignal{Direction: types.Hold},
			Error:     f.err.Error(),
		}, f.err
	}
	res := *f.result
	res.Request = req
	return &res, nil
}

func (f *fakeAnalyzer) AnalyzeNews(ctx context.Context, keywords []string) (types.SentimentSummary, []string) {
	f.lastKeywords = keywords
	return types.SentimentSummary{Score: 0.2, Positive: 2, Neutral: 1, Total: 3}, []string{"a", "b", "c"}
}

type fakeHistory struct {
	pair    string
	limit   int
	results []types.AnalysisResult
}

func (f *fakeHistory) List(ctx context.Context, instrument string, limit int) ([]types.AnalysisResult, error) {
	f.pair, f.limit = instrument, limit
	return f.results, nil
}

func sampleResult() *types.AnalysisResult {
	tech := types.TechnicalSignal{
		Direction:  types.Buy,
		Confidence: 0.4,
		Reasons:    []string{"bullish crossover", "price above both averages, fast above slow"},
		Snapshot: types.IndicatorRow{
			Close:  1.0856789,
			RSI:    types.Ptr(52.3456),
			MACD:   types.Ptr(0.000123456),
			MAFast: types.Ptr(1.0812345),
		},
	}
	sent := types.SentimentSummary{Score: 0.5, Positive: 3, Neutral: 1, Total: 4}
	return &types.AnalysisResult{
		ID:        "abc",
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Final: types.FinalSignal{
			Direction:   types.Buy,
			Confidence:  0.57000001,
			Explanation: types.Explanation{Technical: tech, Sentiment: sent, Branch: "confirmed"},
		},
		Technical:  tech,
		Sentiment:  sent,
		Headlines:  []string{"ECB holds", "Fed signals cut"},
		DataPoints: 168,
		Chart:      []byte("png-bytes"),
	}
}

func newTestServer(a *fakeAnalyzer, h *fakeHistory, opts Options) *Server {
	gin.SetMode(gin.TestMode)
	if h == nil {
		return NewServer(a, nil, opts)
	}
	return NewServer(a, h, opts)
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func TestAnalyzeDefaults(t *testing.T) {
	fa := &fakeAnalyzer{result: sampleResult()}
	s := newTestServer(fa, nil, Options{})

	w := do(s, http.MethodPost, "/api/fx/analyze", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	want := types.AnalysisRequest{Instrument: "EURUSD=X", Interval: "1h", Period: "7d"}
	if fa.lastReq != want {
		t.Errorf("Expected defaults %+v, got %+v", want, fa.lastReq)
	}
}

func TestAnalyzeResponseShape(t *testing.T) {
	fa := &fakeAnalyzer{result: sampleResult()}
	s := newTestServer(fa, nil, Options{})

	w := do(s, http.MethodPost, "/api/fx/analyze", `{"pair":"GBPUSD=X","interval":"1d","period":"1y"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}

	if body["pair"] != "GBPUSD=X" || body["interval"] != "1d" || body["period"] != "1y" {
		t.Errorf("Unexpected request echo: %v", body)
	}
	if body["final_signal"] != "BUY" || body["confidence"] != 0.57 {
		t.Errorf("Unexpected final signal: %v %v", body["final_signal"], body["confidence"])
	}
	if body["data_points"] != float64(168) {
		t.Errorf("Unexpected data_points: %v", body["data_points"])
	}

	tech := body["technical_analysis"].(map[string]any)
	ind := tech["indicators"].(map[string]any)
	if ind["rsi"] != 52.35 || ind["macd"] != 0.0001 || ind["close_price"] != 1.08568 || ind["ma50"] != 1.08123 {
		t.Errorf("Unexpected rounding: %v", ind)
	}
	if ind["ma200"] != nil {
		t.Errorf("Expected null ma200, got %v", ind["ma200"])
	}
	details := tech["details"].(map[string]any)
	if len(details["reasons"].([]any)) != 2 {
		t.Errorf("Unexpected reasons: %v", details["reasons"])
	}

	sent := body["sentiment_analysis"].(map[string]any)
	if sent["sentiment_score"] != 0.5 || sent["positive_count"] != float64(3) || sent["total_analyzed"] != float64(4) {
		t.Errorf("Unexpected sentiment: %v", sent)
	}
	if _, ok := sent["error"]; ok {
		t.Errorf("error key should be omitted when empty")
	}

	chart, _ := base64.StdEncoding.DecodeString(body["chart"].(string))
	if string(chart) != "png-bytes" {
		t.Errorf("Unexpected chart: %q", chart)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("%w: bad interval", types.ErrInvalidRequest), http.StatusBadRequest},
		{fmt.Errorf("%w: no bars", types.ErrDataUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		s := newTestServer(&fakeAnalyzer{err: tt.err}, nil, Options{})
		w := do(s, http.MethodPost, "/api/fx/analyze", `{"pair":"EURUSD=X"}`)
		if w.Code != tt.code {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.code, w.Code)
		}

		var body map[string]any
		json.Unmarshal(w.Body.Bytes(), &body)
		if body["final_signal"] != "HOLD" || body["confidence"] != float64(0) || body["error"] == "" {
			t.Errorf("Expected safe body, got %v", body)
		}
	}
}

func TestAnalyzeBadBody(t *testing.T) {
	s := newTestServer(&fakeAnalyzer{result: sampleResult()}, nil, Options{})
	if w := do(s, http.MethodPost, "/api/fx/analyze", `{"pair":`); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestHistory(t *testing.T) {
	h := &fakeHistory{results: []types.AnalysisResult{*sampleResult(), *sampleResult()}}
	s := newTestServer(&fakeAnalyzer{}, h, Options{})

	w := do(s, http.MethodGet, "/api/fx/history?limit=5&pair=EURUSD%3DX", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if h.pair != "EURUSD=X" || h.limit != 5 {
		t.Errorf("Unexpected query: pair=%s limit=%d", h.pair, h.limit)
	}

	var body HistoryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if body.Count != 2 || len(body.Results) != 2 {
		t.Fatalf("Expected 2 results, got %d", body.Count)
	}
	if body.Results[0].Chart == nil || *body.Results[0].Chart != "" {
		t.Errorf("History chart should be blank")
	}

	if w := do(s, http.MethodGet, "/api/fx/history?limit=abc", ""); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad limit, got %d", w.Code)
	}
	do(s, http.MethodGet, "/api/fx/history?limit=1000", "")
	if h.limit != maxHistoryLimit {
		t.Errorf("Expected limit capped at %d, got %d", maxHistoryLimit, h.limit)
	}
}

func TestHistoryWithoutStore(t *testing.T) {
	s := newTestServer(&fakeAnalyzer{}, nil, Options{})
	w := do(s, http.MethodGet, "/api/fx/history", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"count":0`) {
		t.Errorf("Expected empty history, got %d %s", w.Code, w.Body.String())
	}
}

func TestPairsRootHealth(t *testing.T) {
	s := newTestServer(&fakeAnalyzer{}, nil, Options{Version: "test"})

	w := do(s, http.MethodGet, "/api/fx/pairs", "")
	var pairs struct {
		Pairs []PairInfo `json:"pairs"`
	}
	json.Unmarshal(w.Body.Bytes(), &pairs)
	if len(pairs.Pairs) != 8 || pairs.Pairs[0].Symbol != "EURUSD=X" {
		t.Errorf("Unexpected pairs: %+v", pairs.Pairs)
	}

	if w := do(s, http.MethodGet, "/api/", ""); !strings.Contains(w.Body.String(), "FX Analyzer API") {
		t.Errorf("Unexpected root body: %s", w.Body.String())
	}
	if w := do(s, http.MethodGet, "/health", ""); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("Unexpected health: %d %s", w.Code, w.Body.String())
	}
}

func TestNews(t *testing.T) {
	fa := &fakeAnalyzer{}
	s := newTestServer(fa, nil, Options{})

	w := do(s, http.MethodGet, "/api/fx/news?keywords=ECB,%20Fed,", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if strings.Join(fa.lastKeywords, "|") != "ECB|Fed" {
		t.Errorf("Unexpected keywords: %v", fa.lastKeywords)
	}

	var body NewsResponse
	json.Unmarshal(w.Body.Bytes(), &body)
	if len(body.Headlines) != 3 || body.Sentiment.Total != 3 || body.Timestamp == "" {
		t.Errorf("Unexpected news body: %+v", body)
	}

	do(s, http.MethodGet, "/api/fx/news", "")
	if fa.lastKeywords != nil {
		t.Errorf("Expected nil keywords for defaults, got %v", fa.lastKeywords)
	}
}

func TestRequestIDAndCORS(t *testing.T) {
	s := newTestServer(&fakeAnalyzer{}, nil, Options{CORSOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") != "req-1" {
		t.Errorf("Expected request id echo, got %q", w.Header().Get("X-Request-ID"))
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Errorf("Unexpected CORS origin: %q", w.Header().Get("Access-Control-Allow-Origin"))
	}

	w = do(s, http.MethodOptions, "/api/fx/analyze", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204 preflight, got %d", w.Code)
	}

	w = do(s, http.MethodGet, "/health", "")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected generated request id")
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(&fakeAnalyzer{}, nil, Options{RateLimitRPS: 1, RateLimitBurst: 2})

	codes := []int{}
	for i := 0; i < 3; i++ {
		codes = append(codes, do(s, http.MethodGet, "/health", "").Code)
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Errorf("Unexpected status codes: %v", codes)
	}
}

func TestTimeoutMiddlewareSetsDeadline(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TimeoutMiddleware(50 * time.Millisecond))
	r.GET("/", func(c *gin.Context) {
		if _, ok := c.Request.Context().Deadline(); !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", bytes.NewReader(nil)))
	if w.Code != http.StatusOK {
		t.Errorf("Expected deadline on request context")
	}
}
