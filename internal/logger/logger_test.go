package logger

import (
	"bytes"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestVerboseToggle(t *testing.T) {
	defer SetVerbose(false)

	SetVerbose(false)
	assert.False(t, IsVerbose())
	SetVerbose(true)
	assert.True(t, IsVerbose())
}

func TestLevels(t *testing.T) {
	buf := capture(t)

	Debug("extracted %d chunk(s)", 3)
	Info("run %s finished", "abc")
	Warn("backend unreachable")

	assert.Equal(t,
		"[DEBUG] extracted 3 chunk(s)\n[INFO] run abc finished\n[WARN] backend unreachable\n",
		buf.String())
}

func TestQuietByDefault(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	SetVerbose(false)
	Debug("hidden")
	Info("hidden")
	Warn("hidden")
	Section("hidden")

	assert.Zero(t, buf.Len())
}

func TestSection(t *testing.T) {
	buf := capture(t)

	Section("Ingestion")

	assert.Equal(t, "\n=== Ingestion ===\n", buf.String())
}

func TestConcurrentEmit(t *testing.T) {
	buf := capture(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			Debug("worker %d", n)
			IsVerbose()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, bytes.Count(buf.Bytes(), []byte("[DEBUG] worker")))
}
