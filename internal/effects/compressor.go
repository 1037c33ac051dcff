package effects

import "math"

// Compressor is a feed-forward compressor with a per-channel peak envelope
// follower.
type Compressor struct {
	threshold float32
	ratio     float32
	attack    float32 // coefficient
	release   float32 // coefficient
	makeup    float32
	envL      float32
	envR      float32
	linked    bool
}

// NewCompressor creates a compressor.
// thresholdDB: threshold in dB (e.g., -20)
// ratio: compression ratio (e.g., 4 for 4:1)
// attack, release: follower time constants in seconds
// makeupDB: makeup gain in dB
func NewCompressor(sampleRate float64, thresholdDB, ratio, attack, release, makeupDB float64) *Compressor {
	return &Compressor{
		threshold: float32(math.Pow(10, thresholdDB/20)),
		ratio:     float32(ratio),
		attack:    coefficient(attack, sampleRate),
		release:   coefficient(release, sampleRate),
		makeup:    float32(math.Pow(10, makeupDB/20)),
	}
}

func coefficient(seconds, sampleRate float64) float32 {
	if seconds <= 0 {
		return 1
	}
	return float32(1.0 - math.Exp(-1.0/(seconds*sampleRate)))
}

// Link makes both channels follow the louder one, preserving the image.
func (c *Compressor) Link(on bool) { c.linked = on }

func (c *Compressor) Process(l, r float32) (float32, float32) {
	absL := float32(math.Abs(float64(l)))
	absR := float32(math.Abs(float64(r)))
	c.envL = c.follow(c.envL, absL)
	c.envR = c.follow(c.envR, absR)
	gainL := c.computeGain(c.envL)
	gainR := c.computeGain(c.envR)
	if c.linked {
		g := min(gainL, gainR)
		gainL, gainR = g, g
	}
	return l * gainL * c.makeup, r * gainR * c.makeup
}

func (c *Compressor) follow(env, x float32) float32 {
	if x > env {
		return env + c.attack*(x-env)
	}
	return env + c.release*(x-env)
}

func (c *Compressor) computeGain(env float32) float32 {
	if env <= c.threshold || c.threshold <= 0 || c.ratio <= 1 {
		return 1.0
	}
	over := env / c.threshold
	return float32(math.Pow(float64(over), float64(1.0/c.ratio-1)))
}

func (c *Compressor) Reset() {
	c.envL = 0
	c.envR = 0
}
