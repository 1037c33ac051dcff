package freelist

// ObjectPool recycles *T values across goroutines. Each goroutine draws
// through its own ObjectFreeList.
type ObjectPool[T any] struct {
	cfg   Config
	pool  *Pool[*T]
	reset func(*T)
}

// NewObjectPool creates a pool; reset, if non-nil, runs on every value as it
// is returned so no state leaks into the next user.
func NewObjectPool[T any](cfg Config, reset func(*T)) *ObjectPool[T] {
	cfg = cfg.normalized()
	return &ObjectPool[T]{
		cfg:   cfg,
		pool:  NewPool(cfg.BlockSize, cfg.Verify, func(p *T) any { return p }),
		reset: reset,
	}
}

func (p *ObjectPool[T]) NewList() *ObjectFreeList[T] {
	return &ObjectFreeList[T]{shared: p, local: p.pool.Local()}
}

func (p *ObjectPool[T]) CountInUse() int64 { return p.pool.CountInUse() }

func (p *ObjectPool[T]) CountFree() int64 { return p.pool.CountFree() }

type ObjectFreeList[T any] struct {
	shared *ObjectPool[T]
	local  *SimpleFreeList[*T]
}

// Get returns a recycled value or a new zero value.
func (l *ObjectFreeList[T]) Get() *T {
	l.shared.pool.inUse.Add(1)
	if l.shared.cfg.Enabled {
		if v, ok := l.local.Pop(); ok {
			return v
		}
	}
	return new(T)
}

func (l *ObjectFreeList[T]) Put(v *T) {
	l.shared.pool.inUse.Add(-1)
	if l.shared.reset != nil {
		l.shared.reset(v)
	}
	if !l.shared.cfg.Enabled {
		l.shared.pool.drop(v)
		return
	}
	l.local.Push(v)
}

func (l *ObjectFreeList[T]) Flush() { l.local.Flush() }
