package freelist

// Config replaces the process-wide pooling toggles. It is passed to every
// pool constructor so tests and tools can run pooled and unpooled side by side.
type Config struct {
	// Enabled turns recycling on. When false New allocates and Free drops,
	// with identical observable data.
	Enabled bool

	// Verify tracks every freed item and panics on double free. Costs a
	// mutex-guarded map operation per push/pop. With Enabled false the
	// dropped items stay tracked, and so reachable, for the pool's life.
	Verify bool

	BlockSize      int // slots per block for small items
	LargeBlockSize int // slots per block once an item reaches LargeItemBytes
	LargeItemBytes int
}

func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		BlockSize:      64,
		LargeBlockSize: 4,
		LargeItemBytes: 64 << 10,
	}
}

func (c Config) normalized() Config {
	if c.BlockSize <= 0 {
		c.BlockSize = 64
	}
	if c.LargeBlockSize <= 0 {
		c.LargeBlockSize = 4
	}
	if c.LargeItemBytes <= 0 {
		c.LargeItemBytes = 64 << 10
	}
	c.BlockSize = ceilPow2(c.BlockSize)
	c.LargeBlockSize = ceilPow2(c.LargeBlockSize)
	return c
}

func ceilPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
