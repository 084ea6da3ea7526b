package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivo-labs/archivo-cli/internal/adapters/driven/source/filesystem"
	"github.com/archivo-labs/archivo-cli/internal/core/domain"
)

func TestWatchCmd_Use(t *testing.T) {
	assert.Equal(t, "watch [path]", watchCmd.Use)
}

func TestWatchCmd_DebounceFlagDefault(t *testing.T) {
	flag := watchCmd.Flags().Lookup("debounce")
	require.NotNil(t, flag, "debounce flag should exist")
	assert.Equal(t, filesystem.DefaultDebounce.String(), flag.DefValue)
}

func TestWatchCmd_ServiceNotConfigured(t *testing.T) {
	oldService := ingestService
	ingestService = nil
	defer func() {
		ingestService = oldService
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"watch", t.TempDir()})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ingest service not configured")
}

func TestIngestOnce_ReportsOnlyWhenWorkHappened(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	dir := writeDocs(t, "a.txt")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	defer rootCmd.SetOut(nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	opts := domain.IngestOptions{
		ChunkSize:    appConfig.Chunking.Size,
		ChunkOverlap: appConfig.Chunking.Overlap,
	}
	err := ingestOnce(ctx, rootCmd, dir, opts)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Processed 1 document(s)")
}
