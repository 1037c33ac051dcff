package effects

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/cbegin/synthcore-go/internal/control"
	"github.com/cbegin/synthcore-go/internal/convolve"
	"github.com/cbegin/synthcore-go/internal/errs"
	"github.com/cbegin/synthcore-go/internal/fft"
	"github.com/cbegin/synthcore-go/internal/filters"
	"github.com/cbegin/synthcore-go/internal/logger"
	"github.com/cbegin/synthcore-go/internal/wavetable"
)

const testRate = 48000.0

func newBlock(n int) Block {
	return Block{L: make([]float32, n), R: make([]float32, n)}
}

func testContext(frames int) (*Context, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewContext(testRate, frames, logger.NewInteractionLog(&buf)), &buf
}

func mustBuild(t *testing.T, s Spec, env Env) Effect {
	t.Helper()
	if env.SampleRate == 0 {
		env.SampleRate = testRate
	}
	e, err := Build(s, env)
	if err != nil {
		t.Fatalf("Build(%T): %v", s, err)
	}
	return e
}

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestDelayFeedbackPingPong(t *testing.T) {
	e := mustBuild(t, DelaySpec{Seconds: 4 / testRate, Feedback: 0.5, Cross: 1, Wet: 1}, Env{})
	ctx, _ := testContext(12)
	b := newBlock(12)
	b.L[0] = 1
	if err := e.Apply(b, ctx); err != nil {
		t.Fatal(err)
	}
	// first echo on the left, the fed back one crosses to the right
	if b.L[4] != 1 || b.R[4] != 0 {
		t.Errorf("first echo L=%v R=%v", b.L[4], b.R[4])
	}
	if b.L[8] != 0 || b.R[8] != 0.5 {
		t.Errorf("second echo L=%v R=%v", b.L[8], b.R[8])
	}
	if err := e.Finalize(ctx, false); err != nil {
		t.Fatal(err)
	}
	b = newBlock(12)
	e.Apply(b, ctx)
	for i := range b.L {
		if b.L[i] != 0 || b.R[i] != 0 {
			t.Fatalf("finalize left the line dirty at %d", i)
		}
	}
}

func TestDelayWetSourceIsBlockRate(t *testing.T) {
	wet := control.NewLinear(0, 1, 8)
	e := mustBuild(t, DelaySpec{Seconds: 1 / testRate, WetSource: wet}, Env{})
	d := e.(*Delay)
	ctx, _ := testContext(4)
	b := newBlock(4)
	for i := range b.L {
		b.L[i] = 1
	}
	d.Apply(b, ctx)
	if b.L[3] != 1 {
		t.Errorf("dry at wet 0: %v", b.L)
	}
	d.UpdateEnvelopes(4)
	for i := range b.L {
		b.L[i] = 0
	}
	d.Apply(b, ctx)
	// wet is 0.5 for the whole second block; the line still holds a 1
	if b.L[0] != 0.5 {
		t.Errorf("wet 0.5 output %v", b.L[0])
	}
}

func TestDelaySpecAsEffect(t *testing.T) {
	e := mustBuild(t, DelaySpec{Seconds: 4 / testRate, Wet: 1}, Env{})
	b := newBlock(8)
	b.L[0], b.R[0] = 1, -1
	ctx, _ := testContext(8)
	if err := e.Apply(b, ctx); err != nil {
		t.Fatal(err)
	}
	if b.L[4] != 1 || b.R[4] != -1 || b.L[0] != 0 {
		t.Errorf("delay output L=%v R=%v", b.L, b.R)
	}
}

func TestCompressorReducesLoud(t *testing.T) {
	c := NewCompressor(44100, -10, 4, 0.001, 0.05, 0)
	// Feed loud signal repeatedly to let envelope settle
	var out float32
	for i := 0; i < 1000; i++ {
		out, _ = c.Process(1.0, 1.0)
	}
	if out >= 1.0 {
		t.Errorf("compressor should reduce loud signals, got %f", out)
	}
	if _, err := Build(CompressorSpec{Ratio: 0.5}, Env{SampleRate: testRate}); err == nil {
		t.Error("ratio below 1 accepted")
	}
}

func TestCompressorLinkedKeepsImage(t *testing.T) {
	c := NewCompressor(44100, -20, 8, 0, 0.05, 0)
	c.Link(true)
	var l, r float32
	for i := 0; i < 100; i++ {
		l, r = c.Process(1.0, 0.05)
	}
	if !near(float64(r/l), 0.05, 1e-6) {
		t.Errorf("linked ratio = %v, want 0.05", r/l)
	}
}

type recorder struct {
	id    int
	log   *[]int
	err   error
	hooks []string
}

func (r *recorder) Apply(Block, *Context) error {
	*r.log = append(*r.log, r.id)
	return r.err
}

func (r *recorder) Finalize(*Context, bool) error {
	*r.log = append(*r.log, -r.id)
	return nil
}

func (r *recorder) FixEnvelopeOrigins(int64) { r.hooks = append(r.hooks, "fix") }
func (r *recorder) UpdateEnvelopes(int)      { r.hooks = append(r.hooks, "update") }
func (r *recorder) KeyUpSustain1()           { r.hooks = append(r.hooks, "up1") }
func (r *recorder) KeyUpSustain2()           { r.hooks = append(r.hooks, "up2") }
func (r *recorder) KeyUpSustain3()           { r.hooks = append(r.hooks, "up3") }
func (r *recorder) RetriggerEnvelopes()      { r.hooks = append(r.hooks, "retrigger") }

func TestChainAppliesEffectsInOrder(t *testing.T) {
	var order []int
	boom := errors.New("boom")
	c := NewChain(
		&recorder{id: 1, log: &order},
		&recorder{id: 2, log: &order, err: boom},
		&recorder{id: 3, log: &order},
	)
	err := c.Apply(newBlock(4), nil)
	if !errors.Is(err, boom) {
		t.Fatalf("Apply error = %v, want boom", err)
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("apply order = %v, want [1 2]", order)
	}

	order = order[:0]
	if err := c.Finalize(nil, false); err != nil {
		t.Fatal(err)
	}
	if len(order) != 3 || order[2] != -3 {
		t.Errorf("finalize order = %v", order)
	}
}

func TestChainForwardsEnvelopeHooks(t *testing.T) {
	var order []int
	osc := &recorder{id: 1, log: &order}
	c := NewChain(PerSample(NewCompressor(testRate, -10, 4, 0.001, 0.05, 0)), osc)
	c.FixEnvelopeOrigins(0)
	c.UpdateEnvelopes(64)
	c.KeyUpSustain1()
	c.KeyUpSustain2()
	c.KeyUpSustain3()
	c.RetriggerEnvelopes()
	want := "fix update up1 up2 up3 retrigger"
	if got := strings.Join(osc.hooks, " "); got != want {
		t.Errorf("hooks = %q, want %q", got, want)
	}
}

func TestAnalyzerReportsStats(t *testing.T) {
	ctx, out := testContext(4)
	a := NewAnalyzer("master")
	b := newBlock(4)
	copy(b.L, []float32{0.5, -0.5, 0.5, -0.5})
	copy(b.R, []float32{0, 2, 0, -0.25})
	if err := a.Apply(b, ctx); err != nil {
		t.Fatal(err)
	}
	l, r := a.Stats()
	if l.Min != -0.5 || l.Max != 0.5 || !near(l.RMS(), 0.5, 1e-9) {
		t.Errorf("left stats %+v", l)
	}
	if r.Peak() != 2 || r.Clipped != 1 || r.Frames != 4 {
		t.Errorf("right stats %+v", r)
	}

	if err := a.Finalize(ctx, false); err != nil || out.Len() != 0 {
		t.Fatalf("Finalize without logs wrote %q (%v)", out.String(), err)
	}
	if err := a.Finalize(ctx, true); err != nil {
		t.Fatal(err)
	}
	report := out.String()
	if !strings.HasPrefix(report, `analyzer "master": 4 frames`) || !strings.Contains(report, "-6.02") {
		t.Errorf("report:\n%s", report)
	}
}

func TestHistogramLinearBins(t *testing.T) {
	e := mustBuild(t, HistogramSpec{Name: "h", Bins: 4, Min: 0, Max: 1, Channel: LeftOnly, BarWidth: 8}, Env{})
	h := e.(*Histogram)
	b := newBlock(6)
	copy(b.L, []float32{0.1, -0.1, 0.3, 0.6, 0.9, 1.5})
	b.R[0] = 5 // ignored for LeftOnly
	ctx, out := testContext(6)
	_ = h.Apply(b, ctx)

	bins, under, over := h.Counts()
	want := []int64{2, 1, 1, 1}
	for i := range want {
		if bins[i] != want[i] {
			t.Errorf("bin %d = %d, want %d", i, bins[i], want[i])
		}
	}
	if under != 0 || over != 1 {
		t.Errorf("underflow %d overflow %d", under, over)
	}

	if err := h.Finalize(ctx, true); err != nil {
		t.Fatal(err)
	}
	report := out.String()
	if !strings.Contains(report, "########\n") || !strings.Contains(report, "[0, 0.25)") {
		t.Errorf("report:\n%s", report)
	}
}

func TestHistogramLogBinsAndPolicies(t *testing.T) {
	e := mustBuild(t, HistogramSpec{Bins: 3, Min: 0.001, Max: 1, Log: true, Channel: MaxAfter}, Env{})
	h := e.(*Histogram)
	if !near(h.Edge(1), 0.01, 1e-12) || !near(h.Edge(3), 1, 1e-12) {
		t.Errorf("edges %v %v", h.Edge(1), h.Edge(3))
	}
	b := newBlock(3)
	copy(b.L, []float32{0.002, 0.0001, -0.5})
	copy(b.R, []float32{0, 0.05, 0})
	_ = h.Apply(b, nil)
	bins, under, _ := h.Counts()
	if bins[0] != 1 || bins[1] != 1 || bins[2] != 1 || under != 0 {
		t.Errorf("bins %v under %d", bins, under)
	}

	cases := []struct {
		p    ChannelPolicy
		want float64
	}{
		{LeftOnly, 0.5},
		{RightOnly, 0.25},
		{AverageBefore, 0.125},
		{AverageAfter, 0.375},
		{MaxAfter, 0.5},
	}
	for _, c := range cases {
		if got := c.p.value(0.5, -0.25); got != c.want {
			t.Errorf("%v: %v, want %v", c.p, got, c.want)
		}
		if p, err := ParseChannelPolicy(c.p.String()); err != nil || p != c.p {
			t.Errorf("ParseChannelPolicy(%q) = %v, %v", c.p.String(), p, err)
		}
	}

	if _, err := Build(HistogramSpec{Bins: 3, Min: 0, Max: 1, Log: true}, Env{SampleRate: testRate}); err == nil {
		t.Error("log histogram from zero accepted")
	}
}

func ramp(b Block) {
	for i := range b.L {
		b.L[i] = float32(i)
		b.R[i] = -float32(i)
	}
}

func TestResamplerTruncateRectangular(t *testing.T) {
	e := mustBuild(t, ResamplerSpec{Rate: testRate / 4}, Env{})
	b := newBlock(12)
	ramp(b)
	_ = e.Apply(b, nil)
	for i := range b.L {
		want := float32(i - i%4)
		if b.L[i] != want || b.R[i] != -want {
			t.Fatalf("frame %d: %v/%v, want %v", i, b.L[i], b.R[i], want)
		}
	}
}

func TestResamplerFullRateIsIdentity(t *testing.T) {
	e := mustBuild(t, ResamplerSpec{Rate: testRate, Capture: Interpolate}, Env{})
	b := newBlock(16)
	ramp(b)
	_ = e.Apply(b, nil)
	for i := range b.L {
		if b.L[i] != float32(i) {
			t.Fatalf("frame %d: %v", i, b.L[i])
		}
	}
}

func TestResamplerInterpolatesCapturePoint(t *testing.T) {
	e := mustBuild(t, ResamplerSpec{Rate: testRate * 0.4, Capture: Interpolate}, Env{})
	b := newBlock(8)
	ramp(b)
	_ = e.Apply(b, nil)
	// Captures fall at frames 0, 2.5 and 5.
	if !near(float64(b.L[3]), 2.5, 1e-3) || !near(float64(b.L[6]), 5, 1e-3) {
		t.Errorf("interpolated captures %v", b.L)
	}
}

func TestResamplerTriangularHold(t *testing.T) {
	e := mustBuild(t, ResamplerSpec{Rate: testRate / 4, Hold: Triangular}, Env{})
	b := newBlock(16)
	ramp(b)
	_ = e.Apply(b, nil)
	for i := 4; i < 16; i++ {
		if b.L[i] != float32(i-4) {
			t.Fatalf("frame %d: %v, want %v", i, b.L[i], i-4)
		}
	}
}

func TestResamplerRejectsRates(t *testing.T) {
	for _, rate := range []float64{0, -1, testRate * 2} {
		if _, err := Build(ResamplerSpec{Rate: rate}, Env{SampleRate: testRate}); !errors.Is(err, errs.ErrConfig) {
			t.Errorf("rate %v: err = %v", rate, err)
		}
	}
}

func identityTable(frames int) []float32 {
	t := make([]float32, frames)
	for i := range t {
		t[i] = -1 + 2*float32(i)/float32(frames-1)
	}
	return t
}

func TestNLProcIdentityTable(t *testing.T) {
	stack, _ := wavetable.NewStack(identityTable(256))
	e := mustBuild(t, NLProcSpec{Stack: stack}, Env{})
	b := newBlock(5)
	in := []float32{-1, -0.5, 0, 0.3, 0.99}
	copy(b.L, in)
	copy(b.R, in)
	_ = e.Apply(b, nil)
	for i, x := range in {
		if !near(float64(b.L[i]), float64(x), 1e-4) {
			t.Errorf("shape(%v) = %v", x, b.L[i])
		}
	}
}

func TestNLProcClamping(t *testing.T) {
	stack, _ := wavetable.NewStack(identityTable(256))
	clamped := mustBuild(t, NLProcSpec{Stack: stack, Clamp: true}, Env{}).(*NLProc)
	wrapped := mustBuild(t, NLProcSpec{Stack: stack}, Env{}).(*NLProc)

	if got := clamped.Shape(1.5, 0); got != 1 {
		t.Errorf("clamped high = %v, want 1", got)
	}
	if got := clamped.Shape(-1.5, 0); got != -1 {
		t.Errorf("clamped low = %v, want -1", got)
	}
	if got := wrapped.Shape(1.5, 0); near(float64(got), 1, 0.1) {
		t.Errorf("unclamped input did not wrap: %v", got)
	}
}

func TestNLProcCrossfadesTables(t *testing.T) {
	up := identityTable(64)
	down := make([]float32, 64)
	for i := range up {
		down[i] = -up[i]
	}
	stack, _ := wavetable.NewStack(up, down)
	idx := control.NewLinear(0, 1, 100)
	p := mustBuild(t, NLProcSpec{Stack: stack, TableIndex: idx, Crossfade: true}, Env{}).(*NLProc)

	b := newBlock(1)
	b.L[0] = 0.5
	_ = p.Apply(b, nil)
	if !near(float64(b.L[0]), 0.5, 1e-4) {
		t.Errorf("table 0: %v", b.L[0])
	}
	p.UpdateEnvelopes(50)
	b.L[0] = 0.5
	_ = p.Apply(b, nil)
	if !near(float64(b.L[0]), 0, 1e-4) {
		t.Errorf("halfway: %v", b.L[0])
	}
}

func TestDistortionBounded(t *testing.T) {
	specs, err := Distortion(10, 0.5, 0)
	if err != nil {
		t.Fatal(err)
	}
	c, err := BuildChain(specs, Env{SampleRate: testRate})
	if err != nil {
		t.Fatal(err)
	}
	b := newBlock(3)
	copy(b.L, []float32{0.5, 3, -0.01})
	copy(b.R, b.L)
	_ = c.Apply(b, nil)
	if !near(float64(b.L[0]), 0.5*math.Tanh(5), 1e-3) || !near(float64(b.L[1]), 0.5*math.Tanh(10), 1e-3) {
		t.Errorf("distortion output %v", b.L)
	}
	if !near(float64(b.L[2]), 0.5*math.Tanh(-0.1), 1e-3) {
		t.Errorf("small input %v", b.L[2])
	}
}

func testManager(t *testing.T, backend fft.Backend) *fft.Manager {
	t.Helper()
	m := fft.NewManager()
	if err := m.Init(fft.Options{Backend: backend}); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(m.Shutdown)
	return m
}

func TestConvolverStereoAndBiStereo(t *testing.T) {
	m := testManager(t, fft.Textbook)
	ctx, _ := testContext(16)

	stereo := mustBuild(t, ConvolverSpec{IR: [][]float32{{1}, {0.5}}, Topology: Stereo}, Env{FFT: m}).(*Convolver)
	lat := stereo.Latency()
	b := newBlock(16)
	b.L[0], b.R[0] = 1, 1
	_ = stereo.Apply(b, ctx)
	if !near(float64(b.L[lat]), 1, 1e-5) || !near(float64(b.R[lat]), 0.5, 1e-5) {
		t.Errorf("stereo at latency %d: %v %v", lat, b.L[lat], b.R[lat])
	}

	bi := mustBuild(t, ConvolverSpec{
		IR:       [][]float32{{1}, {0.25}, {0}, {1}},
		Topology: BiStereo,
	}, Env{FFT: m}).(*Convolver)
	b = newBlock(16)
	b.L[0] = 1
	_ = bi.Apply(b, ctx)
	lat = bi.Latency()
	if !near(float64(b.L[lat]), 1, 1e-5) || !near(float64(b.R[lat]), 0.25, 1e-5) {
		t.Errorf("bi-stereo at latency %d: %v %v", lat, b.L[lat], b.R[lat])
	}

	_ = stereo.Finalize(ctx, false)
	_ = bi.Finalize(ctx, false)
	if m.Live() != 0 {
		t.Errorf("%d transforms leaked", m.Live())
	}
}

func TestConvolverDryPathIsDelayed(t *testing.T) {
	m := testManager(t, fft.Textbook)
	c := mustBuild(t, ConvolverSpec{IR: [][]float32{{0}}, Dry: 1}, Env{FFT: m}).(*Convolver)
	b := newBlock(16)
	b.L[0], b.R[0] = 1, 1
	_ = c.Apply(b, nil)
	lat := c.Latency()
	if b.L[lat] != 1 || b.R[lat] != 1 {
		t.Errorf("dry at latency %d: %v %v", lat, b.L, b.R)
	}
	_ = c.Finalize(nil, false)
}

func TestChainLatencyAndTail(t *testing.T) {
	m := testManager(t, fft.Textbook)
	conv := mustBuild(t, ConvolverSpec{IR: [][]float32{make([]float32, 100)}}, Env{FFT: m}).(*Convolver)
	delay := mustBuild(t, DelaySpec{Seconds: 0.01, Feedback: 0.5, Wet: 0.5}, Env{}).(*Delay)
	c := NewChain(conv, delay, PerSample(NewCompressor(testRate, -10, 4, 0.001, 0.05, 0)))
	if conv.Latency() <= 0 || c.Latency() != conv.Latency() {
		t.Errorf("chain latency %d, convolver %d", c.Latency(), conv.Latency())
	}
	// 480-frame delay: the first echo and ten repeats down to -60 dB.
	if conv.Tail() != 99 || delay.Tail() != 11*480 || c.Tail() != 99+11*480 {
		t.Errorf("tails: convolver %d, delay %d, chain %d", conv.Tail(), delay.Tail(), c.Tail())
	}
	_ = c.Finalize(nil, false)
}

func TestZeroGainsSelectUnity(t *testing.T) {
	stack, _ := wavetable.NewStack(identityTable(256))
	zero := mustBuild(t, NLProcSpec{Stack: stack}, Env{}).(*NLProc)
	unity := mustBuild(t, NLProcSpec{Stack: stack, InputGain: 1, OutputGain: 1}, Env{}).(*NLProc)
	for _, x := range []float32{-0.75, 0, 0.4} {
		if zero.Shape(x, 0) != unity.Shape(x, 0) {
			t.Errorf("shape(%v): zero gains %v, unity %v", x, zero.Shape(x, 0), unity.Shape(x, 0))
		}
	}

	band := mustBuild(t, FilterSpec{Bands: []FilterBand{{Kind: filters.Null}}}, Env{})
	ctx, _ := testContext(2)
	b := newBlock(2)
	b.L[0], b.R[1] = 2, -3
	_ = band.Apply(b, ctx)
	if b.L[0] != 2 || b.R[1] != -3 {
		t.Errorf("zero scale band: %v %v", b.L, b.R)
	}

	m := testManager(t, fft.Textbook)
	for _, c := range []struct {
		spec ConvolverSpec
		want float64
	}{
		{ConvolverSpec{IR: [][]float32{{0.5}}}, 0.5},
		{ConvolverSpec{IR: [][]float32{{0.5}}, Dry: 1}, 1},
		{ConvolverSpec{IR: [][]float32{{0.5}}, Wet: 2}, 1},
	} {
		conv := mustBuild(t, c.spec, Env{FFT: m}).(*Convolver)
		b := newBlock(16)
		b.L[0] = 1
		_ = conv.Apply(b, nil)
		if lat := conv.Latency(); !near(float64(b.L[lat]), c.want, 1e-5) {
			t.Errorf("wet %v dry %v: %v at latency %d, want %v", c.spec.Wet, c.spec.Dry, b.L[lat], lat, c.want)
		}
		_ = conv.Finalize(nil, false)
	}
}

func TestConvolverConfigErrors(t *testing.T) {
	m := testManager(t, fft.Library)
	cases := []struct {
		spec ConvolverSpec
		code errs.Code
	}{
		{ConvolverSpec{IR: [][]float32{{1}, {1}}, Topology: Mono}, errs.UnsupportedChannels},
		{ConvolverSpec{IR: [][]float32{{1}}, Topology: BiStereo}, errs.UnsupportedChannels},
		{ConvolverSpec{IR: [][]float32{{1}}, IRSampleRate: 44100}, errs.SampleRateMismatch},
		{ConvolverSpec{IR: [][]float32{{1}}, Backend: convolve.LowLatency, Latency: 16}, errs.BackendUnavailable},
	}
	for i, c := range cases {
		_, err := Build(c.spec, Env{SampleRate: testRate, FFT: m})
		code, ok := errs.CodeOf(err)
		if !ok || code != c.code {
			t.Errorf("case %d: err = %v, want %v", i, err, c.code)
		}
	}
	if m.Live() != 0 {
		t.Errorf("%d transforms leaked by failed builds", m.Live())
	}
}

func TestSineProcessor(t *testing.T) {
	e := mustBuild(t, UserEffectSpec{
		Processor: "sine",
		Params:    map[string]float64{"frequency": 1000, "gain": 0.5},
	}, Env{Role: RoleOscillator})
	ctx, _ := testContext(96)
	b := newBlock(96)
	if err := e.Apply(b, ctx); err != nil {
		t.Fatal(err)
	}
	for i := range b.L {
		want := 0.5 * math.Sin(2*math.Pi*1000*float64(i)/testRate)
		if !near(float64(b.L[i]), want, 1e-3) || b.L[i] != b.R[i] {
			t.Fatalf("frame %d: %v/%v, want %v", i, b.L[i], b.R[i], want)
		}
	}
}

func TestSineProcessorModulatedGain(t *testing.T) {
	gain := control.NewLinear(0, 1, 64)
	e := mustBuild(t, UserEffectSpec{
		Processor:  "sine",
		Modulation: map[string]control.Source{"gain": gain},
	}, Env{}).(*UserEffect)
	ctx, _ := testContext(32)
	b := newBlock(32)
	_ = e.Apply(b, ctx)
	for i, v := range b.L {
		if v != 0 {
			t.Fatalf("frame %d sounded at zero gain: %v", i, v)
		}
	}
	e.UpdateEnvelopes(64)
	_ = e.Apply(b, ctx)
	if b.L[5] == 0 {
		t.Error("full gain block is silent")
	}
}

type trackOnly struct{}

func (trackOnly) Capabilities() Capabilities                 { return Capabilities{Roles: RoleTrack} }
func (trackOnly) Process(Block, [][]float32, *Context) error { return nil }

func TestUserProcessorContract(t *testing.T) {
	reg := NewRegistry()
	factory := func(map[string]float64, float64) (UserProcessor, error) { return trackOnly{}, nil }
	if err := reg.Register("track-only", factory); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register("track-only", factory); err == nil {
		t.Error("duplicate registration accepted")
	}

	env := Env{SampleRate: testRate, Registry: reg, Role: RoleOscillator}
	_, err := Build(UserEffectSpec{Processor: "track-only"}, env)
	if code, _ := errs.CodeOf(err); code != errs.RoleNotSupported {
		t.Errorf("oscillator role: err = %v", err)
	}
	env.Role = RoleTrack
	if _, err := Build(UserEffectSpec{Processor: "track-only"}, env); err != nil {
		t.Errorf("track role: %v", err)
	}
	if _, err := Build(UserEffectSpec{Processor: "track-only", Modulation: map[string]control.Source{"x": control.Constant(1)}}, env); err == nil {
		t.Error("modulation of a non-smoothable processor accepted")
	}
	if _, err := Build(UserEffectSpec{Processor: "missing"}, env); err == nil {
		t.Error("unknown processor accepted")
	}
	if _, err := Build(UserEffectSpec{Processor: "sine", Params: map[string]float64{"frequency": testRate}}, Env{SampleRate: testRate}); err == nil {
		t.Error("sine above Nyquist accepted")
	}
	if names := DefaultRegistry.Names(); len(names) == 0 || names[0] != "sine" {
		t.Errorf("default registry = %v", names)
	}
}

func TestFilterBankParallelSums(t *testing.T) {
	half := control.Constant(0.5)
	e := mustBuild(t, FilterSpec{Bands: []FilterBand{
		{Kind: filters.Null, Gain: half},
		{Kind: filters.Null, Gain: half, Scale: 2},
	}}, Env{})
	ctx, _ := testContext(4)
	b := newBlock(4)
	copy(b.L, []float32{1, 2, 3, 4})
	_ = e.Apply(b, ctx)
	for i, want := range []float32{1.5, 3, 4.5, 6} {
		if b.L[i] != want {
			t.Errorf("frame %d: %v, want %v", i, b.L[i], want)
		}
	}
}

func TestEQ3BandUnityGain(t *testing.T) {
	for _, c := range []struct {
		low  float64
		want float32
	}{{1, 0.5}, {2, 1.0}} {
		fb := mustBuild(t, EQ3Band(c.low, 1, 1, 300, 3000), Env{})
		ctx, _ := testContext(512)
		b := newBlock(512)
		for blk := 0; blk < 40; blk++ {
			for i := range b.L {
				b.L[i], b.R[i] = 0.5, 0.5
			}
			_ = fb.Apply(b, ctx)
		}
		// DC passes the low shelf at its gain.
		if !near(float64(b.L[511]), float64(c.want), 0.02) || !near(float64(b.R[511]), float64(c.want), 0.02) {
			t.Errorf("low gain %v: got l=%f r=%f, want %v", c.low, b.L[511], b.R[511], c.want)
		}
	}
}

func TestFilterBankModulatedCutoff(t *testing.T) {
	cutoff := control.NewLinear(100, 200, 10)
	fb := mustBuild(t, FilterSpec{Bands: []FilterBand{{Kind: filters.Lowpass1, Cutoff: cutoff}}}, Env{}).(*FilterBank)
	fb.UpdateEnvelopes(5)
	if cutoff.Value() != 150 {
		t.Errorf("cutoff after update = %v, want 150", cutoff.Value())
	}
	if _, err := Build(FilterSpec{}, Env{SampleRate: testRate}); err == nil {
		t.Error("empty filter spec accepted")
	}
	if _, err := Build(FilterSpec{Bands: []FilterBand{{Kind: filters.Kind(99)}}}, Env{SampleRate: testRate}); !errors.Is(err, errs.ErrConfig) {
		t.Errorf("bad kind: %v", err)
	}
}

func TestBuildChainReportsPosition(t *testing.T) {
	_, err := BuildChain([]Spec{AnalyzerSpec{}, ResamplerSpec{}}, Env{SampleRate: testRate})
	if !errors.Is(err, errs.ErrConfig) || !strings.HasPrefix(err.Error(), "effect 1:") {
		t.Errorf("err = %v", err)
	}
	if _, err := Build(AnalyzerSpec{}, Env{}); err == nil {
		t.Error("zero sample rate accepted")
	}
}

var (
	_ OscillatorEffect = (*Chain)(nil)
	_ OscillatorEffect = (*NLProc)(nil)
	_ OscillatorEffect = (*FilterBank)(nil)
	_ OscillatorEffect = (*UserEffect)(nil)
	_ Effect           = (*Convolver)(nil)
	_ OscillatorEffect = (*Delay)(nil)
	_ Processor        = (*Compressor)(nil)
)
