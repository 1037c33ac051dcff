package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/cbegin/synthcore-go"
	"github.com/cbegin/synthcore-go/internal/fft"
	"github.com/cbegin/synthcore-go/internal/freelist"
	"github.com/cbegin/synthcore-go/internal/logger"
)

type renderOptions struct {
	song       string
	out        string
	seconds    float64
	sampleRate int
	block      int
	workers    int
	backend    string
	wisdom     string
	pcm16      bool
	normalize  float64
	noPool     bool
	report     bool
	play       bool
	loop       bool
	volume     float64
}

func newRenderCmd() *cobra.Command {
	o := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a song to a WAV file",
		Long: `The render command renders a JSON song, or a short built-in demo when
--song is omitted, and writes it as a stereo WAV file.

Example:
  synthcore render --song song.json --out song.wav
  synthcore render --song song.json --pcm16 --normalize 0.9 --out song.wav
  synthcore render --play --report`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.song, "song", "", "JSON song file (default: built-in demo)")
	f.StringVarP(&o.out, "out", "o", "", "Output WAV file")
	f.Float64Var(&o.seconds, "seconds", 0, "Fixed output length in seconds (0 ends with the last voice)")
	f.IntVar(&o.sampleRate, "sample-rate", 48000, "Output sample rate")
	f.IntVar(&o.block, "block", 512, "Effect block size in frames")
	f.IntVar(&o.workers, "workers", 0, "Voices rendered concurrently (0 means GOMAXPROCS)")
	f.StringVar(&o.backend, "backend", "textbook", "FFT backend: textbook or library")
	f.StringVar(&o.wisdom, "wisdom", "", "FFT wisdom file, imported if present and rewritten after rendering")
	f.BoolVar(&o.pcm16, "pcm16", false, "Write 16-bit PCM instead of 32-bit float")
	f.Float64Var(&o.normalize, "normalize", 0, "Scale the output to this peak (0 leaves it alone)")
	f.BoolVar(&o.noPool, "no-pool", false, "Disable buffer recycling")
	f.BoolVar(&o.report, "report", false, "Print analyzer and histogram reports to stderr")
	f.BoolVar(&o.play, "play", false, "Play the result on the default audio device")
	f.BoolVar(&o.loop, "loop", false, "With --play, loop until interrupted")
	f.Float64Var(&o.volume, "volume", 1, "Playback volume")
	return cmd
}

func runRender(cmd *cobra.Command, o *renderOptions) error {
	if o.out == "" && !o.play {
		return errors.New("nothing to do: set --out or --play")
	}
	mgr, err := fftManager(o)
	if err != nil {
		return err
	}
	defer mgr.Shutdown()

	opts := []synthcore.RenderOption{
		synthcore.WithSampleRate(o.sampleRate),
		synthcore.WithBlockFrames(o.block),
		synthcore.WithDuration(o.seconds),
		synthcore.WithFFT(mgr),
	}
	if o.workers > 0 {
		opts = append(opts, synthcore.WithWorkers(o.workers))
	}
	if o.noPool {
		opts = append(opts, synthcore.WithFreeLists(freelist.Config{}))
	}
	if o.report {
		opts = append(opts, synthcore.WithInteractionLog(cmd.ErrOrStderr()))
	}

	var song *synthcore.Song
	if o.song != "" {
		s, dict, err := synthcore.LoadSong(o.song, float64(o.sampleRate))
		if err != nil {
			return err
		}
		song = s
		opts = append(opts, synthcore.WithProvider(dict))
	} else {
		song = demoSong()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	start := time.Now()
	res, err := synthcore.Render(ctx, song, opts...)
	if err != nil {
		return err
	}
	logger.L.Info("rendered", "notes", song.NoteCount(), "frames", res.Frames(), "elapsed", time.Since(start))
	printInfo(cmd, "rendered %d notes, %.2fs of audio, peak %.3f\n", song.NoteCount(), res.Seconds(), res.Peak())
	if o.normalize > 0 {
		res.Normalize(float32(o.normalize))
	}

	if o.out != "" {
		if err := writeResult(res, o.out, o.pcm16); err != nil {
			return err
		}
		printInfo(cmd, "wrote %s\n", o.out)
	}
	if o.wisdom != "" {
		if err := os.WriteFile(o.wisdom, []byte(mgr.ExportWisdom()), 0o644); err != nil {
			return fmt.Errorf("save wisdom: %w", err)
		}
	}
	if o.play {
		return play(ctx, res, o)
	}
	return nil
}

func fftManager(o *renderOptions) (*fft.Manager, error) {
	backend, err := fft.ParseBackend(o.backend)
	if err != nil {
		return nil, err
	}
	opts := fft.Options{Backend: backend}
	if o.wisdom != "" {
		data, err := os.ReadFile(o.wisdom)
		switch {
		case err == nil:
			opts.Wisdom = string(data)
		case !errors.Is(err, fs.ErrNotExist):
			return nil, err
		}
	}
	mgr := fft.NewManager()
	if err := mgr.Init(opts); err != nil {
		return nil, err
	}
	return mgr, nil
}

func writeResult(res *synthcore.Result, path string, pcm16 bool) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if pcm16 {
		return res.WriteWAV16(f)
	}
	return res.WriteWAV(f)
}

func play(ctx context.Context, res *synthcore.Result, o *renderOptions) error {
	pv, err := synthcore.NewPreview(res, synthcore.WithPreviewLoop(o.loop), synthcore.WithPreviewVolume(o.volume))
	if err != nil {
		return err
	}
	if err := pv.Play(); err != nil {
		return err
	}
	err = pv.Wait(ctx)
	if serr := pv.Stop(); err == nil {
		err = serr
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
