package workspace

// ScratchCount is the number of scratch workspaces given to a user
// processor per block.
const ScratchCount = 3

// Scratch holds a fixed set of per-voice workspaces. Acquire hands them out
// for the duration of one block and panics if they are already held, which
// catches a processor re-entering its own voice.
type Scratch struct {
	bufs [ScratchCount]*Aligned
	held bool
}

// NewScratch allocates ScratchCount heap workspaces of frames floats.
func NewScratch(frames int, cfg Config) *Scratch {
	s := &Scratch{}
	for i := range s.bufs {
		s.bufs[i] = New(frames, cfg)
	}
	return s
}

// NewScratch carves ScratchCount workspaces from the arena.
func (a *Arena) NewScratch(frames int) (*Scratch, error) {
	s := &Scratch{}
	for i := range s.bufs {
		w, err := a.Alloc(frames)
		if err != nil {
			return nil, err
		}
		s.bufs[i] = w
	}
	return s, nil
}

// Frames is the capacity of each workspace.
func (s *Scratch) Frames() int { return s.bufs[0].Len() }

// Acquire returns the workspaces truncated to n frames and zeroed. Pair it
// with Done, usually via defer.
func (s *Scratch) Acquire(n int) [ScratchCount][]float32 {
	if s.held {
		panic(ErrScratchBusy)
	}
	s.held = true
	var out [ScratchCount][]float32
	for i, w := range s.bufs {
		f := w.Floats()[:n]
		clear(f)
		out[i] = f
	}
	return out
}

func (s *Scratch) Done() { s.held = false }

// Release releases the workspaces this scratch owns.
func (s *Scratch) Release() {
	for _, w := range s.bufs {
		if w.Owned() {
			w.Release()
		}
	}
}
