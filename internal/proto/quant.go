package proto

import "math"

// Normalized [0,1) fields travel as u16/65535 (scoreFraction, oxygen,
// tailExtension, digestion progress) or u8/255 (digestion strength). Range
// fields map the quantized integer linearly onto a declared [lo, hi].

func quantUnit16(v float64) uint16 {
	return uint16(math.Round(clamp01(v) * 65535))
}

func dequantUnit16(q uint16) float64 { return float64(q) / 65535 }

func quantUnit8(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}

func dequantUnit8(q uint8) float64 { return float64(q) / 255 }

func quantRange8(v, lo, hi float64) uint8 {
	return uint8(math.Round(clamp01((v-lo)/(hi-lo)) * 255))
}

func dequantRange8(q uint8, lo, hi float64) float64 {
	return lo + float64(q)/255*(hi-lo)
}

func quantRange16(v, lo, hi float64) uint16 {
	return uint16(math.Round(clamp01((v-lo)/(hi-lo)) * 65535))
}

func dequantRange16(q uint16, lo, hi float64) float64 {
	return lo + float64(q)/65535*(hi-lo)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
