package logger

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInteractionLogBlocksDoNotInterleave(t *testing.T) {
	var buf bytes.Buffer
	il := NewInteractionLog(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			var b strings.Builder
			for line := 0; line < 5; line++ {
				fmt.Fprintf(&b, "voice %02d line %d\n", id, line)
			}
			assert.NoError(t, il.WriteBlock(b.String()))
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 80)
	for i := 0; i < len(lines); i += 5 {
		prefix := lines[i][:8]
		for j := 1; j < 5; j++ {
			assert.Equal(t, prefix, lines[i+j][:8], "block starting at line %d interleaved", i)
		}
	}
}

func TestInitWritesToWriter(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Enabled: true, Writer: &buf, Level: slog.LevelDebug})
	defer Init(Options{})
	L.Debug("fft init", "threads", 2)
	assert.Contains(t, buf.String(), "fft init")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
