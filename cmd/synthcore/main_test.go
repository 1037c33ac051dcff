package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// run executes a fresh command tree and returns what it printed.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRenderDemoWritesWAV(t *testing.T) {
	out := filepath.Join(t.TempDir(), "demo.wav")
	stdout, stderr, err := run(t, "render", "--out", out, "--seconds", "0.5", "--sample-rate", "22050", "--report")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(stdout, "wrote "+out) {
		t.Errorf("stdout = %q", stdout)
	}
	if !strings.Contains(stderr, `analyzer "lead"`) || !strings.Contains(stderr, `analyzer "bass"`) {
		t.Errorf("missing reports in %q", stderr)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	// 44 byte header, 0.5 s of float32 stereo
	if want := 44 + 11025*8; len(data) != want {
		t.Fatalf("file is %d bytes, want %d", len(data), want)
	}
	if string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Errorf("bad header %q", data[:12])
	}
}

func TestRenderSongFilePCM16(t *testing.T) {
	dir := t.TempDir()
	song := filepath.Join(dir, "song.json")
	src := `{"tracks": [{"name": "t", "notes": [{"pitch": 69, "beat": 0, "beats": 1, "velocity": 1}]}]}`
	if err := os.WriteFile(song, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "song.wav")
	wisdom := filepath.Join(dir, "fft.wisdom")
	_, _, err := run(t, "render", "-q", "--song", song, "--out", out, "--pcm16", "--normalize", "0.5",
		"--backend", "library", "--wisdom", wisdom, "--workers", "2", "--no-pool")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	info, err := os.Stat(out)
	if err != nil {
		t.Fatal(err)
	}
	// one beat at 120 bpm
	if info.Size() <= 24000*4 {
		t.Errorf("pcm16 file only %d bytes", info.Size())
	}
	if _, err := os.Stat(wisdom); err != nil {
		t.Errorf("wisdom not saved: %v", err)
	}
}

func TestRenderRejectsBadInput(t *testing.T) {
	cases := [][]string{
		{"render"},
		{"render", "--out", filepath.Join(t.TempDir(), "x.wav"), "--backend", "fftw"},
		{"render", "--out", filepath.Join(t.TempDir(), "x.wav"), "--song", "does-not-exist.json"},
		{"render", "--out", filepath.Join(t.TempDir(), "x.wav"), "--block", "0"},
	}
	for _, args := range cases {
		if _, _, err := run(t, args...); err == nil {
			t.Errorf("%v: expected an error", args)
		}
	}
}

func TestProcessorsAndVersion(t *testing.T) {
	stdout, _, err := run(t, "processors")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, "sine") {
		t.Errorf("processors = %q", stdout)
	}
	stdout, _, err = run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(stdout, "synthcore dev") {
		t.Errorf("version = %q", stdout)
	}
}
