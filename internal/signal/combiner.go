package signal

import (
	"math"

	"fx-analyzer/internal/types"
)

// Combiner branch names recorded in the explanation.
const (
	BranchConfirmed    = "confirmed"
	BranchVetoed       = "vetoed"
	BranchUnconfirmed  = "unconfirmed"
	BranchSentimentLed = "sentiment-led"
	BranchNeutral      = "neutral"
)

// CombinerConfig holds the fusion constants.
type CombinerConfig struct {
	TechnicalWeight   float64
	SentimentWeight   float64
	MaxConfidence     float64
	AgreeThreshold    float64
	VetoThreshold     float64
	LeadThreshold     float64
	VetoConfidence    float64
	UnconfirmedFactor float64
	SentimentLedConf  float64
	NeutralConfidence float64
}

// DefaultCombinerConfig returns the 0.7/0.3 weighting with the asymmetric
// veto and discount constants.
func DefaultCombinerConfig() CombinerConfig {
	return CombinerConfig{
		TechnicalWeight:   0.7,
		SentimentWeight:   0.3,
		MaxConfidence:     0.9,
		AgreeThreshold:    0.1,
		VetoThreshold:     0.2,
		LeadThreshold:     0.3,
		VetoConfidence:    0.4,
		UnconfirmedFactor: 0.8,
		SentimentLedConf:  0.5,
		NeutralConfidence: 0.4,
	}
}

// Combiner fuses a technical signal with a sentiment summary. Sentiment can
// confirm or veto a technical BUY/SELL but only leads when technical is HOLD.
type Combiner struct {
	cfg CombinerConfig
}

// NewCombiner uses DefaultCombinerConfig when cfg is the zero value.
func NewCombiner(cfg CombinerConfig) *Combiner {
	if cfg == (CombinerConfig{}) {
		cfg = DefaultCombinerConfig()
	}
	return &Combiner{cfg: cfg}
}

// Combine fuses tech with the sentiment score. The explanation carries both
// inputs unchanged and the name of the branch taken.
func (c *Combiner) Combine(tech types.TechnicalSignal, sent types.SentimentSummary) types.FinalSignal {
	dir, conf, branch := c.decide(tech, sent.Score)
	return types.FinalSignal{
		Direction:  dir,
		Confidence: conf,
		Explanation: types.Explanation{
			Technical: tech,
			Sentiment: sent,
			Branch:    branch,
		},
	}
}

func (c *Combiner) decide(tech types.TechnicalSignal, s float64) (types.Direction, float64, string) {
	cfg := c.cfg
	fused := func() float64 {
		return math.Min(cfg.MaxConfidence, cfg.TechnicalWeight*tech.Confidence+cfg.SentimentWeight*math.Abs(s))
	}

	switch tech.Direction {
	case types.Buy:
		switch {
		case s > cfg.AgreeThreshold:
			return types.Buy, fused(), BranchConfirmed
		case s < -cfg.VetoThreshold:
			return types.Hold, cfg.VetoConfidence, BranchVetoed
		default:
			return types.Buy, tech.Confidence * cfg.UnconfirmedFactor, BranchUnconfirmed
		}
	case types.Sell:
		switch {
		case s < -cfg.AgreeThreshold:
			return types.Sell, fused(), BranchConfirmed
		case s > cfg.VetoThreshold:
			return types.Hold, cfg.VetoConfidence, BranchVetoed
		default:
			return types.Sell, tech.Confidence * cfg.UnconfirmedFactor, BranchUnconfirmed
		}
	default:
		if math.Abs(s) > cfg.LeadThreshold {
			if s > 0 {
				return types.Buy, cfg.SentimentLedConf, BranchSentimentLed
			}
			return types.Sell, cfg.SentimentLedConf, BranchSentimentLed
		}
		return types.Hold, cfg.NeutralConfidence, BranchNeutral
	}
}
