package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simulate(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	argv := append([]string{"xchargectl", "simulate"}, args...)
	code := runArgs(context.Background(), argv, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestSimulate_MemoryBackends(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"lock", []string{"--strategy", "lock"}},
		{"optimistic", []string{"--strategy", "optimistic", "--max-retry", "10"}},
		{"pessimistic", []string{"--strategy", "pessimistic", "--write-delay", "1ms"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--users", "10", "--amount", "100", "--initial", "1000"}, tt.args...)
			code, out, errOut := simulate(t, args...)
			require.Equal(t, 0, code, errOut)
			assert.Contains(t, out, "strategy:   "+tt.name)
			assert.Contains(t, out, "succeeded:  10")
			assert.Contains(t, out, "final:      2000")
			assert.Contains(t, out, "version:    10")
		})
	}
}

func TestSimulate_OptimisticBusyStillConserves(t *testing.T) {
	code, out, errOut := simulate(t,
		"--strategy", "optimistic", "--users", "20", "--max-retry", "1", "--write-delay", "2ms")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "failed:")
	assert.Contains(t, out, "conflicts:")
}

func TestSimulate_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	for _, strategy := range []string{"lock", "optimistic", "pessimistic"} {
		t.Run(strategy, func(t *testing.T) {
			mr.FlushAll()
			code, out, errOut := simulate(t, "--redis", mr.Addr(), "--strategy", strategy,
				"--max-retry", "10", "--users", "10", "--amount", "100", "--initial", "1000")
			require.Equal(t, 0, code, errOut)
			assert.Contains(t, out, "final:      2000")
			assert.Equal(t, "2000", mr.HGet("xledger:record:1", "balance"))
			assert.False(t, mr.Exists("xlease:ledger:1"))
		})
	}
}

func TestSimulate_ExistingRecordIsBaseline(t *testing.T) {
	mr := miniredis.RunT(t)

	code, _, errOut := simulate(t, "--redis", mr.Addr(), "--strategy", "lock", "--users", "2", "--amount", "10")
	require.Equal(t, 0, code, errOut)

	code, out, errOut := simulate(t, "--redis", mr.Addr(), "--strategy", "lock", "--users", "2", "--amount", "10")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "initial:    1020")
	assert.Contains(t, out, "final:      1040")
}

func TestSimulate_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("optimistic:\n  max_retry: 10\n  initial_backoff: 1ms\n  max_backoff: 5ms\n"), 0o600))

	code, out, errOut := simulate(t, "--config", path, "--users", "8", "--amount", "5", "--initial", "0")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "final:      40")
}

func TestSimulate_UsageErrors(t *testing.T) {
	badConfig := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(badConfig, []byte("optimistic:\n  max_retry: 0\n"), 0o600))

	tests := []struct {
		name string
		args []string
	}{
		{"unknown strategy", []string{"--strategy", "mutex"}},
		{"pessimistic on mongo", []string{"--strategy", "pessimistic", "--mongo", "mongodb://127.0.0.1:1"}},
		{"zero users", []string{"--users", "0"}},
		{"zero max retry", []string{"--max-retry", "0"}},
		{"negative write delay", []string{"--write-delay=-1s"}},
		{"bad log level", []string{"--log-level", "loud"}},
		{"unknown flag", []string{"--bogus"}},
		{"missing config", []string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}},
		{"invalid config", []string{"--config", badConfig}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := simulate(t, tt.args...)
			assert.Equal(t, 2, code)
		})
	}
}

func TestSimulate_UnreachableRedis(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	addr := mr.Addr()
	mr.Close()

	code, _, errOut := simulate(t, "--redis", addr)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "connect redis")
}

func TestIsCLIUsageError(t *testing.T) {
	assert.True(t, isCLIUsageError(newUsageError("flag provided but not defined: -x")))
	assert.False(t, isCLIUsageError(os.ErrNotExist))
}
