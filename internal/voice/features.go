package voice

import "math"

// Features are the fixed-formula measurements the heuristic scores against.
// All values are dimensionless and roughly in [0, 1] for speech-level input.
type Features struct {
	Volume         float64 // peak absolute amplitude
	Energy         float64 // mean squared amplitude
	RMS            float64
	ZeroCrossRate  float64 // sign changes per sample
	Centroid       float64 // spectral centroid, fraction of Nyquist
	Rolloff        float64 // 85% spectral rolloff, fraction of Nyquist
	PitchVariation float64 // spread of autocorrelation peaks, clamped to [0,1]
}

// Extract computes the feature set over a mono sample window.
func Extract(samples []float32) Features {
	var f Features
	if len(samples) == 0 {
		return f
	}

	var sumSq float64
	for _, x := range samples {
		v := math.Abs(float64(x))
		if v > f.Volume {
			f.Volume = v
		}
		sumSq += float64(x) * float64(x)
	}
	f.Energy = sumSq / float64(len(samples))
	f.RMS = math.Sqrt(f.Energy)

	crossings := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] >= 0) != (samples[i] >= 0) {
			crossings++
		}
	}
	f.ZeroCrossRate = float64(crossings) / float64(len(samples))

	mag := spectrum(samples)
	f.Centroid = spectralCentroid(mag)
	f.Rolloff = spectralRolloff(mag, 0.85)
	f.PitchVariation = pitchVariation(samples)

	return f
}

// spectrum returns the magnitude of the positive-frequency half of the DFT,
// computed over the window zero-padded to a power of two.
func spectrum(samples []float32) []float64 {
	n := 1
	for n < len(samples) {
		n <<= 1
	}
	re := make([]float64, n)
	im := make([]float64, n)
	for i, x := range samples {
		re[i] = float64(x)
	}
	fft(re, im)

	mag := make([]float64, n/2)
	for i := range mag {
		mag[i] = math.Hypot(re[i], im[i])
	}
	return mag
}

// fft is an in-place iterative radix-2 transform. len(re) must be a power of
// two; no DSP dependency is worth pulling in for one call site.
func fft(re, im []float64) {
	n := len(re)
	if n < 2 {
		return
	}

	// bit-reversal permutation
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j |= bit
		if i < j {
			re[i], re[j] = re[j], re[i]
			im[i], im[j] = im[j], im[i]
		}
	}

	for length := 2; length <= n; length <<= 1 {
		ang := -2 * math.Pi / float64(length)
		wRe, wIm := math.Cos(ang), math.Sin(ang)
		for i := 0; i < n; i += length {
			cRe, cIm := 1.0, 0.0
			half := length / 2
			for j := 0; j < half; j++ {
				uRe, uIm := re[i+j], im[i+j]
				vRe := re[i+j+half]*cRe - im[i+j+half]*cIm
				vIm := re[i+j+half]*cIm + im[i+j+half]*cRe
				re[i+j], im[i+j] = uRe+vRe, uIm+vIm
				re[i+j+half], im[i+j+half] = uRe-vRe, uIm-vIm
				cRe, cIm = cRe*wRe-cIm*wIm, cRe*wIm+cIm*wRe
			}
		}
	}
}

func spectralCentroid(mag []float64) float64 {
	var num, den float64
	for i, m := range mag {
		num += float64(i) * m
		den += m
	}
	if den == 0 || len(mag) == 0 {
		return 0.5
	}
	return num / den / float64(len(mag))
}

func spectralRolloff(mag []float64, frac float64) float64 {
	var total float64
	for _, m := range mag {
		total += m
	}
	if total == 0 || len(mag) == 0 {
		return 0.5
	}

	target := frac * total
	var cum float64
	for i, m := range mag {
		cum += m
		if cum >= target {
			return float64(i) / float64(len(mag))
		}
	}
	return 1.0
}

// pitchVariation estimates how unsteady the pitch is from the spread of
// autocorrelation peaks over lags that cover the speech F0 range.
func pitchVariation(samples []float32) float64 {
	n := len(samples)
	if n < 3 {
		return 0.5
	}

	maxLag := 400
	if maxLag > n-1 {
		maxLag = n - 1
	}

	ac := make([]float64, maxLag+1)
	for lag := 0; lag <= maxLag; lag++ {
		var s float64
		for i := 0; i+lag < n; i++ {
			s += float64(samples[i]) * float64(samples[i+lag])
		}
		ac[lag] = s
	}

	var peaks []float64
	for i := 1; i < len(ac)-1; i++ {
		if ac[i] > ac[i-1] && ac[i] > ac[i+1] {
			peaks = append(peaks, ac[i])
		}
	}
	if len(peaks) < 2 {
		return 0.5
	}

	var mean float64
	for _, p := range peaks {
		mean += p
	}
	mean /= float64(len(peaks))

	var variance float64
	for _, p := range peaks {
		variance += (p - mean) * (p - mean)
	}
	variance /= float64(len(peaks))

	v := math.Sqrt(variance) / (math.Abs(mean) + 1e-10)
	if v > 1 {
		v = 1
	}
	return v
}
