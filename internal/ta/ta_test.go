package ta

import (
	"math"
	"testing"
)

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestSMASeries(t *testing.T) {
	got := SMASeries([]float64{1, 2, 3, 4, 5}, 3)

	for i := 0; i < 2; i++ {
		if !math.IsNaN(got[i]) {
			t.Errorf("index %d: expected NaN before window fills, got %f", i, got[i])
		}
	}
	want := []float64{2, 3, 4}
	for i, w := range want {
		if got[i+2] != w {
			t.Errorf("index %d: expected %f, got %f", i+2, w, got[i+2])
		}
	}
}

func TestSMASeriesShortInput(t *testing.T) {
	got := SMASeries([]float64{1, 2}, 5)
	for i, v := range got {
		if !math.IsNaN(v) {
			t.Errorf("index %d: expected NaN, got %f", i, v)
		}
	}
}

func TestEMASeriesSeededWithSMA(t *testing.T) {
	got := EMASeries([]float64{2, 4, 6, 8}, 3)

	if !math.IsNaN(got[1]) {
		t.Errorf("expected NaN before seed, got %f", got[1])
	}
	if got[2] != 4 {
		t.Errorf("expected seed 4, got %f", got[2])
	}
	// k = 0.5: (8-4)*0.5 + 4
	if got[3] != 6 {
		t.Errorf("expected 6, got %f", got[3])
	}
}

func TestEMASeriesSkipsLeadingNaN(t *testing.T) {
	nan := math.NaN()
	got := EMASeries([]float64{nan, nan, 1, 3, 5}, 2)

	if !math.IsNaN(got[2]) {
		t.Errorf("expected NaN at index 2, got %f", got[2])
	}
	if got[3] != 2 {
		t.Errorf("expected seed 2 at index 3, got %f", got[3])
	}
}

func TestRSISeriesBounds(t *testing.T) {
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 100 + 5*math.Sin(float64(i)/3)
	}

	got := RSISeries(closes, 14)
	for i := 0; i < 14; i++ {
		if !math.IsNaN(got[i]) {
			t.Errorf("index %d: expected NaN, got %f", i, got[i])
		}
	}
	for i := 14; i < len(got); i++ {
		if got[i] < 0 || got[i] > 100 {
			t.Errorf("index %d: RSI out of range: %f", i, got[i])
		}
	}
}

func TestRSISeriesExtremes(t *testing.T) {
	up := RSISeries(ramp(30, 1, 1), 14)
	if up[29] != 100 {
		t.Errorf("expected RSI 100 on strictly rising closes, got %f", up[29])
	}

	down := RSISeries(ramp(30, 100, -1), 14)
	if down[29] != 0 {
		t.Errorf("expected RSI 0 on strictly falling closes, got %f", down[29])
	}

	flat := RSISeries(ramp(30, 5, 0), 14)
	if flat[29] != 50 {
		t.Errorf("expected RSI 50 on flat closes, got %f", flat[29])
	}
}

func TestMACDAvailability(t *testing.T) {
	line, sig, hist := MACD(ramp(40, 1, 0.5), 12, 26, 9)

	// slow EMA seeds at 25, signal needs 9 MACD values -> first row 33
	for i := 0; i < 33; i++ {
		if !math.IsNaN(line[i]) || !math.IsNaN(sig[i]) || !math.IsNaN(hist[i]) {
			t.Fatalf("index %d: expected all MACD outputs NaN", i)
		}
	}
	for i := 33; i < 40; i++ {
		if math.IsNaN(line[i]) || math.IsNaN(sig[i]) || math.IsNaN(hist[i]) {
			t.Fatalf("index %d: expected MACD outputs present", i)
		}
		if math.Abs(hist[i]-(line[i]-sig[i])) > 1e-12 {
			t.Errorf("index %d: histogram %f != line-signal %f", i, hist[i], line[i]-sig[i])
		}
	}
}

func TestMACDLinearTrend(t *testing.T) {
	// On a linear ramp the EMA lag is (n-1)/2 * slope, so the line converges
	// to (26-12)/2 * slope = 7 * slope.
	line, sig, _ := MACD(ramp(400, 1, 0.1), 12, 26, 9)

	if math.Abs(line[399]-0.7) > 1e-6 {
		t.Errorf("expected MACD line ~0.7, got %f", line[399])
	}
	if math.Abs(sig[399]-0.7) > 1e-6 {
		t.Errorf("expected signal ~0.7, got %f", sig[399])
	}
}

func TestBollinger(t *testing.T) {
	mid, up, low := Bollinger([]float64{1, 1, 1, 3, 3, 3}, 6, 2)

	if mid[5] != 2 {
		t.Errorf("expected middle 2, got %f", mid[5])
	}
	// population stddev of {1,1,1,3,3,3} is 1
	if up[5] != 4 || low[5] != 0 {
		t.Errorf("expected bands 4/0, got %f/%f", up[5], low[5])
	}
	if !math.IsNaN(up[4]) || !math.IsNaN(low[4]) {
		t.Errorf("expected NaN bands before window fills")
	}
}
