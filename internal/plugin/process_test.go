package plugin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaic-db/mosaic/internal/errs"
)

// fakePlugin writes an executable shell script acting as the child process.
func fakePlugin(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plugin.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestSpawnFailure(t *testing.T) {
	_, err := Spawn(filepath.Join(t.TempDir(), "missing"), nil)
	require.Error(t, err)
	assert.True(t, errs.IsTransport(err))
}

func TestCallRoundTrip(t *testing.T) {
	// cat echoes the request line back; the echo carries the matching id and
	// no error member, so it reads as an empty success response.
	p, err := Spawn(fakePlugin(t, "exec cat"), nil)
	require.NoError(t, err)
	defer p.Shutdown()

	result, err := p.Call(context.Background(), "ping", map[string]any{"n": 1})
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestRepliesCorrelateByIDNotOrder(t *testing.T) {
	// The child reads both requests first, then answers them in reverse.
	p, err := Spawn(fakePlugin(t, `
read a
read b
printf '{"jsonrpc":"2.0","result":"second","id":2}\n'
printf '{"jsonrpc":"2.0","result":"first","id":1}\n'
`), nil)
	require.NoError(t, err)
	defer p.Shutdown()

	ctx := context.Background()
	var wg sync.WaitGroup
	results := make([]string, 2)

	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			raw, err := p.Call(ctx, "op", nil)
			assert.NoError(t, err)
			var s string
			assert.NoError(t, json.Unmarshal(raw, &s))
			results[i] = s
		}(i)
		// Keep id assignment deterministic across the two goroutines.
		time.Sleep(50 * time.Millisecond)
	}
	wg.Wait()

	assert.Equal(t, []string{"first", "second"}, results)
}

func TestErrorEnvelope(t *testing.T) {
	p, err := Spawn(fakePlugin(t, `
read a
printf '{"jsonrpc":"2.0","error":{"code":-32601,"message":"no such method"},"id":1}\n'
`), nil)
	require.NoError(t, err)
	defer p.Shutdown()

	_, err = p.Call(context.Background(), "bogus", nil)
	require.Error(t, err)
	assert.True(t, errs.IsUnsupported(err))
	assert.Contains(t, err.Error(), "no such method")
}

func TestCrashFailsPendingCalls(t *testing.T) {
	// The child exits after consuming the request without answering.
	p, err := Spawn(fakePlugin(t, "read a\nexit 0"), nil)
	require.NoError(t, err)
	defer p.Shutdown()

	_, err = p.Call(context.Background(), "op", nil)
	require.Error(t, err)
	assert.True(t, errs.IsTransport(err))
}

func TestCallAfterShutdown(t *testing.T) {
	p, err := Spawn(fakePlugin(t, "exec cat"), nil)
	require.NoError(t, err)

	p.Shutdown()
	p.Shutdown() // idempotent

	_, err = p.Call(context.Background(), "op", nil)
	require.Error(t, err)
	assert.True(t, errs.IsTransport(err))
}

func TestMalformedLinesAreSkipped(t *testing.T) {
	p, err := Spawn(fakePlugin(t, `
read a
printf 'not json at all\n'
printf '{"jsonrpc":"2.0","result":42,"id":1}\n'
`), nil)
	require.NoError(t, err)
	defer p.Shutdown()

	raw, err := p.Call(context.Background(), "op", nil)
	require.NoError(t, err)
	assert.Equal(t, "42", string(raw))
}

func TestCallContextCancellation(t *testing.T) {
	// The child never answers; the caller's deadline bounds the wait.
	p, err := Spawn(fakePlugin(t, "read a\nsleep 60"), nil)
	require.NoError(t, err)
	defer p.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = p.Call(ctx, "op", nil)
	require.Error(t, err)
	assert.True(t, errs.IsTimeout(err))
}
