package signal

// RollingMeans computes the trailing arithmetic mean over a fixed window.
// out[i] is the mean of values[i-window+1 .. i]; it is nil while fewer than
// window values are available.
func RollingMeans(values []float64, window int) []*float64 {
	out := make([]*float64, len(values))
	if window < 1 {
		return out
	}

	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			mean := sum / float64(window)
			out[i] = &mean
		}
	}
	return out
}
