package synthcore

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/cbegin/synthcore-go/internal/control"
	"github.com/cbegin/synthcore-go/internal/effects"
	"github.com/cbegin/synthcore-go/internal/errs"
	"github.com/cbegin/synthcore-go/internal/fft"
	"github.com/cbegin/synthcore-go/internal/freelist"
	"github.com/cbegin/synthcore-go/internal/logger"
	"github.com/cbegin/synthcore-go/internal/note"
	"github.com/cbegin/synthcore-go/internal/samples"
	"github.com/cbegin/synthcore-go/internal/splay"
	"github.com/cbegin/synthcore-go/internal/tempo"
	"github.com/cbegin/synthcore-go/internal/wavetable"
)

// Renderer renders songs. Its pools carry voice buffers from one render to
// the next. Render must not be called concurrently on one Renderer.
type Renderer struct {
	cfg    renderConfig
	arrays *freelist.ArrayPool[float32]
	jobs   *freelist.ObjectPool[job]
}

// job is one note on its way through a worker.
type job struct {
	track  int
	inst   *Instrument
	frozen note.Frozen
	stack  *wavetable.Stack
	sample *samples.Sample
	ratio  float64
	// buf holds the pooled voice buffers; frames of them were rendered.
	buf    [2][]float32
	frames int
}

func NewRenderer(opts ...RenderOption) (*Renderer, error) {
	cfg := defaultRenderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	switch {
	case cfg.sampleRate <= 0:
		return nil, errs.New(errs.InvalidParameter, "sample rate %d", cfg.sampleRate)
	case cfg.blockFrames <= 0:
		return nil, errs.New(errs.InvalidParameter, "block of %d frames", cfg.blockFrames)
	case cfg.workers <= 0:
		return nil, errs.New(errs.InvalidParameter, "%d workers", cfg.workers)
	case cfg.maxTail < 0 || cfg.seconds < 0:
		return nil, errs.New(errs.InvalidParameter, "negative duration")
	}
	if cfg.fft == nil {
		m := fft.NewManager()
		if err := m.Init(fft.Options{Backend: fft.Textbook}); err != nil {
			return nil, err
		}
		cfg.fft = m
	}
	if cfg.provider == nil {
		cfg.provider = samples.NewDictionary()
	}
	if cfg.registry == nil {
		cfg.registry = effects.DefaultRegistry
	}
	return &Renderer{
		cfg:    cfg,
		arrays: freelist.NewArrayPool[float32](cfg.freelists),
		jobs:   freelist.NewObjectPool(cfg.freelists, func(j *job) { *j = job{} }),
	}, nil
}

func (r *Renderer) SampleRate() int { return r.cfg.sampleRate }

// PoolStats counts pooled voice buffers.
type PoolStats struct {
	InUse int64
	Free  int64
}

func (r *Renderer) PoolStats() PoolStats {
	return PoolStats{InUse: r.arrays.CountInUse(), Free: r.arrays.CountFree()}
}

func (r *Renderer) tempoMap(song *Song) (*tempo.Controller, error) {
	tc, err := tempo.New(float64(r.cfg.sampleRate), r.cfg.resolution)
	if err != nil {
		return nil, err
	}
	for _, c := range song.Tempo {
		if err := tc.SetTempo(c.Beat, c.BPM, c.Ramp); err != nil {
			return nil, err
		}
	}
	tc.Prepare()
	return tc, nil
}

func (r *Renderer) resolveStack(inst *Instrument) (*wavetable.Stack, error) {
	switch {
	case inst.Stack != nil:
		return inst.Stack, nil
	case inst.WaveTable != "":
		return r.cfg.provider.WaveTable(inst.WaveTable)
	case len(inst.Multisamples) > 0:
		return nil, nil
	default:
		return nil, errs.New(errs.MissingSample, "instrument has neither wavetable nor samples")
	}
}

func (r *Renderer) selectSample(j *job) error {
	f := j.frozen.Frequency
	m, ok := note.SelectMultisample(j.inst.Multisamples, f)
	if !ok {
		return errs.New(errs.MissingSample, "no multisample covers %.2f Hz", f)
	}
	s, err := r.cfg.provider.Sample(m.Sample)
	if err != nil {
		return err
	}
	j.sample = s
	j.ratio = m.PlaybackRatio(f, j.inst.Params.Tuning)
	return nil
}

// Render renders every unmuted track of song and mixes them.
func (r *Renderer) Render(ctx context.Context, song *Song) (_ *Result, err error) {
	tc, err := r.tempoMap(song)
	if err != nil {
		return nil, err
	}
	sr := float64(r.cfg.sampleRate)
	arrays := r.arrays.NewList()
	defer arrays.Flush()
	jobs := r.jobs.NewList()
	defer jobs.Flush()

	var all []*job
	defer func() {
		for _, j := range all {
			if j.buf[0] != nil {
				arrays.Free(j.buf[0])
				arrays.Free(j.buf[1])
			}
			jobs.Put(j)
		}
	}()

	chains := make([]*effects.Chain, len(song.Tracks))
	defer func() {
		for _, c := range chains {
			if c != nil {
				c.Finalize(nil, false)
			}
		}
	}()

	sched := splay.NewArray[int64, []*job](max(song.NoteCount(), 1), false)
	for ti := range song.Tracks {
		t := &song.Tracks[ti]
		if t.Mute {
			continue
		}
		chains[ti], err = effects.BuildChain(t.Effects, effects.Env{
			SampleRate: sr,
			FFT:        r.cfg.fft,
			Role:       effects.RoleTrack,
			Registry:   r.cfg.registry,
		})
		if err != nil {
			return nil, fmt.Errorf("track %d: %w", ti, err)
		}
		stack, err := r.resolveStack(&t.Instrument)
		if err != nil {
			return nil, fmt.Errorf("track %d: %w", ti, err)
		}
		for ni, n := range t.Notes {
			f, err := note.Freeze(n, tc, t.Instrument.Params)
			if err != nil {
				return nil, fmt.Errorf("track %d note %d: %w", ti, ni, err)
			}
			j := jobs.Get()
			all = append(all, j)
			j.track, j.inst, j.frozen, j.stack = ti, &t.Instrument, f, stack
			if stack == nil {
				if err := r.selectSample(j); err != nil {
					return nil, fmt.Errorf("track %d note %d: %w", ti, ni, err)
				}
			}
			if list, ok := sched.GetValue(f.StartFrame); ok {
				sched.SetValue(f.StartFrame, append(list, j))
			} else {
				sched.Add(f.StartFrame, []*job{j})
			}
		}
	}

	order := make([]*job, 0, len(all))
	for _, list := range sched.All() {
		order = append(order, list...)
	}
	if err := r.renderVoices(ctx, order); err != nil {
		return nil, err
	}

	// The song runs on through the longest track tail. A track bus is its
	// chain's latency longer and is read back shifted by it.
	total := 0
	if r.cfg.seconds > 0 {
		total = int(math.Round(r.cfg.seconds * sr))
	} else {
		for _, j := range order {
			total = max(total, int(j.frozen.StartFrame)+j.frames)
		}
		tail := 0
		for _, c := range chains {
			if c != nil {
				tail = max(tail, c.Tail())
			}
		}
		if total > 0 {
			total += tail
		}
	}
	latency := make([]int, len(song.Tracks))
	for ti, c := range chains {
		if c != nil {
			latency[ti] = c.Latency()
		}
	}

	buses := make([][2][]float32, len(song.Tracks))
	defer func() {
		for _, b := range buses {
			if b[0] != nil {
				arrays.Free(b[0])
				arrays.Free(b[1])
			}
		}
	}()
	for ti := range song.Tracks {
		if !song.Tracks[ti].Mute && total > 0 {
			n := total + latency[ti]
			buses[ti] = [2][]float32{arrays.New(n), arrays.New(n)}
		}
	}
	for _, j := range order {
		b := buses[j.track]
		if b[0] == nil {
			continue
		}
		at := int(j.frozen.StartFrame)
		mixInto(b[0][:total], j.buf[0][:j.frames], at)
		mixInto(b[1][:total], j.buf[1][:j.frames], at)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.workers)
	for ti := range song.Tracks {
		if buses[ti][0] == nil {
			continue
		}
		chain := chains[ti]
		chains[ti] = nil
		n := total + latency[ti]
		l, rr := buses[ti][0][:n], buses[ti][1][:n]
		gain := song.Tracks[ti].Gain
		g.Go(func() error {
			if err := r.processTrack(gctx, chain, l, rr, gain); err != nil {
				return fmt.Errorf("track %d: %w", ti, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Result{
		SampleRate: r.cfg.sampleRate,
		L:          make([]float32, total),
		R:          make([]float32, total),
	}
	for ti, b := range buses {
		if b[0] != nil {
			lat := latency[ti]
			mixInto(out.L, b[0][lat:lat+total], 0)
			mixInto(out.R, b[1][lat:lat+total], 0)
		}
	}
	logger.L.Debug("synthcore: rendered", "notes", len(order), "tracks", len(song.Tracks), "frames", total)
	return out, nil
}

// renderVoices renders every job on a bounded set of workers.
func (r *Renderer) renderVoices(ctx context.Context, order []*job) error {
	g, gctx := errgroup.WithContext(ctx)
	queue := make(chan *job)
	g.Go(func() error {
		defer close(queue)
		for _, j := range order {
			select {
			case queue <- j:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for range min(r.cfg.workers, len(order)) {
		g.Go(func() error {
			w := r.newWorker()
			defer w.close()
			for j := range queue {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := w.render(j); err != nil {
					return fmt.Errorf("track %d: %w", j.track, err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// processTrack runs a track chain over its bus in blocks and finalizes it.
func (r *Renderer) processTrack(ctx context.Context, chain *effects.Chain, l, rr []float32, gain float64) (err error) {
	ectx := effects.NewContext(float64(r.cfg.sampleRate), r.cfg.blockFrames, r.cfg.log)
	defer ectx.Scratch.Release()
	defer func() {
		if ferr := chain.Finalize(ectx, r.cfg.writeLogs && err == nil); err == nil {
			err = ferr
		}
	}()
	for pos := 0; pos < len(l); pos += r.cfg.blockFrames {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(pos+r.cfg.blockFrames, len(l))
		ectx.Frame = int64(pos)
		if err := chain.Apply(effects.Block{L: l[pos:end], R: rr[pos:end]}, ectx); err != nil {
			return err
		}
		chain.UpdateEnvelopes(end - pos)
	}
	if gain != 0 && gain != 1 {
		g := float32(gain)
		for i := range l {
			l[i] *= g
			rr[i] *= g
		}
	}
	return nil
}

func mixInto(dst, src []float32, at int) {
	if at >= len(dst) {
		return
	}
	n := min(len(src), len(dst)-at)
	for i := range n {
		dst[at+i] += src[i]
	}
}

// worker renders voices on one goroutine with its own free list and
// scratch.
type worker struct {
	r      *Renderer
	arrays *freelist.ArrayFreeList[float32]
	ctx    *effects.Context
	env    effects.Env
}

func (r *Renderer) newWorker() *worker {
	sr := float64(r.cfg.sampleRate)
	return &worker{
		r:      r,
		arrays: r.arrays.NewList(),
		ctx:    effects.NewContext(sr, r.cfg.blockFrames, r.cfg.log),
		env: effects.Env{
			SampleRate: sr,
			FFT:        r.cfg.fft,
			Role:       effects.RoleOscillator,
			Registry:   r.cfg.registry,
		},
	}
}

func (w *worker) close() {
	w.arrays.Flush()
	w.ctx.Scratch.Release()
}

func (w *worker) render(j *job) error {
	cfg := &w.r.cfg
	sr := float64(cfg.sampleRate)
	f := j.frozen
	inst := j.inst

	var env control.Envelope
	var loudness control.Source = control.Constant(f.Loudness)
	limit := f.Release[2]
	if len(inst.Envelope.Points) > 0 {
		segs := inst.Envelope
		segs.SampleRate = sr
		env = scaled{control.NewSegmented(segs), f.Loudness}
		loudness = env
		limit += int64(math.Round(cfg.maxTail * sr))
	}
	if limit <= 0 {
		return nil
	}

	var gen generator
	if j.sample != nil {
		gen = newSamplePlayer(j.sample, j.ratio, sr, loudness, f.Pan)
	} else {
		gen = wavetable.NewOscillator(j.stack, wavetable.OscillatorParams{
			Frequency:  f.Frequency,
			SampleRate: sr,
			Loudness:   loudness,
			TableIndex: control.NewLinear(inst.TableIndexStart, inst.TableIndexEnd, f.Frames),
			Pan:        f.Pan,
			Crossfade:  inst.Crossfade,
		})
	}

	var specs []effects.Spec
	if inst.Effects != nil {
		specs = inst.Effects(f, sr)
	}
	chain, err := effects.BuildChain(specs, w.env)
	if err != nil {
		return err
	}
	if env != nil {
		env.FixOrigin(f.StartFrame)
	}
	chain.FixEnvelopeOrigins(f.StartFrame)

	w.reserve(j, int(min(limit, f.Release[2]+int64(cfg.blockFrames))))

	var pos int64
	stage := 0
	for pos < limit {
		for stage < 3 && f.Release[stage] <= pos {
			stage++
			keyUp(env, chain, stage)
		}
		if stage == 3 && (env == nil || env.Done()) {
			break
		}
		n := min(int64(cfg.blockFrames), limit-pos)
		if stage < 3 {
			n = min(n, f.Release[stage]-pos)
		} else if rem, ok := env.Remaining(); ok {
			n = min(n, rem)
		}
		w.reserve(j, int(pos+n))
		bl, br := j.buf[0][pos:pos+n], j.buf[1][pos:pos+n]
		gen.Render(bl, br)
		w.ctx.Frame = f.StartFrame + pos
		if err := chain.Apply(effects.Block{L: bl, R: br}, w.ctx); err != nil {
			chain.Finalize(w.ctx, false)
			return err
		}
		chain.UpdateEnvelopes(int(n))
		pos += n
	}
	j.frames = int(pos)
	return chain.Finalize(w.ctx, false)
}

// reserve grows the job's buffers to hold at least n frames, at least
// doubling each time.
func (w *worker) reserve(j *job, n int) {
	if len(j.buf[0]) >= n {
		return
	}
	size := max(n, 2*len(j.buf[0]))
	for c, old := range j.buf {
		buf := w.arrays.New(size)
		if old != nil {
			copy(buf, old)
			w.arrays.Free(old)
		}
		j.buf[c] = buf
	}
}

func keyUp(env control.Envelope, chain *effects.Chain, stage int) {
	if env != nil {
		env.KeyUp(stage)
	}
	switch stage {
	case 1:
		chain.KeyUpSustain1()
	case 2:
		chain.KeyUpSustain2()
	case 3:
		chain.KeyUpSustain3()
	}
}
