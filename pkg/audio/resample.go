package audio

// Resample converts 16-bit mono PCM from srcRate to dstRate by linear
// interpolation. pcm is returned as is when the rates match or either rate
// is not positive.
func Resample(pcm []byte, srcRate, dstRate int) []byte {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate || len(pcm) < 2 {
		return pcm
	}
	n := len(pcm) / 2
	outN := int(int64(n) * int64(dstRate) / int64(srcRate))
	if outN == 0 {
		return nil
	}

	sample := func(i int) float64 {
		if i >= n {
			i = n - 1
		}
		return float64(int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8))
	}

	out := make([]byte, outN*2)
	step := float64(srcRate) / float64(dstRate)
	for i := range outN {
		pos := float64(i) * step
		j := int(pos)
		frac := pos - float64(j)
		v := int16(sample(j)*(1-frac) + sample(j+1)*frac)
		out[2*i] = byte(v)
		out[2*i+1] = byte(uint16(v) >> 8)
	}
	return out
}
