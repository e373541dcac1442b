package ta

import "math"

// All series functions return a slice aligned with the input. Positions whose
// lookback window is not yet filled hold NaN.

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// SMA returns the simple moving average of the last n values.
func SMA(vals []float64, n int) float64 {
	if len(vals) < n || n <= 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(vals) - n; i < len(vals); i++ {
		sum += vals[i]
	}
	return sum / float64(n)
}

// SMASeries returns the n-period simple moving average at every index.
func SMASeries(vals []float64, n int) []float64 {
	out := nanSeries(len(vals))
	if n <= 0 {
		return out
	}
	for i := n - 1; i < len(vals); i++ {
		out[i] = SMA(vals[:i+1], n)
	}
	return out
}

// StdDev returns the population standard deviation of the last n values.
func StdDev(vals []float64, n int) float64 {
	if len(vals) < n || n <= 0 {
		return math.NaN()
	}
	m := SMA(vals, n)
	s := 0.0
	for i := len(vals) - n; i < len(vals); i++ {
		d := vals[i] - m
		s += d * d
	}
	return math.Sqrt(s / float64(n))
}

// StdDevSeries returns the n-period population standard deviation at every index.
func StdDevSeries(vals []float64, n int) []float64 {
	out := nanSeries(len(vals))
	if n <= 0 {
		return out
	}
	for i := n - 1; i < len(vals); i++ {
		out[i] = StdDev(vals[:i+1], n)
	}
	return out
}

// EMASeries returns the n-period exponential moving average. Leading NaNs in
// vals are skipped; the EMA is seeded with the SMA of the first n valid values.
func EMASeries(vals []float64, n int) []float64 {
	out := nanSeries(len(vals))
	if n <= 0 {
		return out
	}
	start := 0
	for start < len(vals) && math.IsNaN(vals[start]) {
		start++
	}
	seed := start + n - 1
	if seed >= len(vals) {
		return out
	}
	ema := SMA(vals[start:seed+1], n)
	out[seed] = ema
	k := 2.0 / float64(n+1)
	for i := seed + 1; i < len(vals); i++ {
		ema = (vals[i]-ema)*k + ema
		out[i] = ema
	}
	return out
}

// RSISeries computes Wilder's RSI. The first period entries are NaN.
func RSISeries(closes []float64, period int) []float64 {
	out := nanSeries(len(closes))
	if period <= 0 || len(closes) < period+1 {
		return out
	}
	gain, loss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	out[period] = rsi(avgGain, avgLoss)

	p := float64(period)
	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		g, l := 0.0, 0.0
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*(p-1) + g) / p
		avgLoss = (avgLoss*(p-1) + l) / p
		out[i] = rsi(avgGain, avgLoss)
	}
	return out
}

func rsi(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50.0
		}
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

// MACD returns the MACD line, signal line and histogram. A row is NaN in all
// three outputs unless the signal line is defined there.
func MACD(closes []float64, fast, slow, signal int) (line, sig, hist []float64) {
	fastEMA := EMASeries(closes, fast)
	slowEMA := EMASeries(closes, slow)

	line = nanSeries(len(closes))
	for i := range closes {
		if !math.IsNaN(fastEMA[i]) && !math.IsNaN(slowEMA[i]) {
			line[i] = fastEMA[i] - slowEMA[i]
		}
	}
	sig = EMASeries(line, signal)
	hist = nanSeries(len(closes))
	for i := range closes {
		if math.IsNaN(sig[i]) {
			line[i] = math.NaN()
			continue
		}
		hist[i] = line[i] - sig[i]
	}
	return line, sig, hist
}

// Bollinger returns the n-period bands at k standard deviations.
func Bollinger(closes []float64, n int, k float64) (mid, up, low []float64) {
	mid = SMASeries(closes, n)
	sd := StdDevSeries(closes, n)
	up = nanSeries(len(closes))
	low = nanSeries(len(closes))
	for i := range closes {
		if math.IsNaN(mid[i]) || math.IsNaN(sd[i]) {
			continue
		}
		up[i] = mid[i] + k*sd[i]
		low[i] = mid[i] - k*sd[i]
	}
	return mid, up, low
}
