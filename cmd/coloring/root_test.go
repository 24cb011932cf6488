package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scenario = filepath.Join("..", "..", "pkg", "problem", "testdata", "scenario.yaml")

func execute(t *testing.T, args ...string) (string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String(), errOut.String()
}

func TestInfo(t *testing.T) {
	out, _ := execute(t, "info", scenario)
	assert.Contains(t, out, "paths: 2\n")
	assert.Contains(t, out, "holes: 4\n")
	assert.Regexp(t, `3\s+T0\s+threshold\s+2`, out)
}

func TestRun(t *testing.T) {
	out, errOut := execute(t, "run", "--metrics", scenario, scenario)
	assert.Equal(t, 2, bytes.Count([]byte(out), []byte("---\n")))
	assert.Contains(t, out, "harmonizing: T0")
	assert.Contains(t, out, "selected:\n  - 0\n  - 1\n  - 2\n  - 3\n")
	assert.Contains(t, errOut, "coloring_queries_total")
}

func TestRunSingleCheck(t *testing.T) {
	out, _ := execute(t, "run", "--single-check", scenario)
	assert.NotContains(t, out, "harmonizing:")
	assert.Contains(t, out, "consistent: false")
}

func TestRunMissingFile(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, cmd.Execute())
}

func TestRunMainReportsErrorsOnce(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	var errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"run", filepath.Join(t.TempDir(), "missing.yaml")})

	assert.Equal(t, 1, runMain(cmd, logger))
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Error(t, hook.LastEntry().Data[logrus.ErrorKey].(error))
	assert.NotContains(t, errOut.String(), "Error:")
}

func TestVersion(t *testing.T) {
	out, _ := execute(t, "--version")
	assert.Contains(t, out, "coloring version:")
}

func TestRunFilter(t *testing.T) {
	out, _ := execute(t, "run", "--jq", ".answers[] | select(.consistent == false) | .query", scenario)
	assert.Equal(t, "\"fixed-threshold\"\n\"fixed-threshold-hinted\"\n", out)

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "--jq", ".answers[", scenario})
	assert.Error(t, cmd.Execute())
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatch(t *testing.T) {
	data, err := os.ReadFile(scenario)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	out := &lockedBuffer{}
	cmd := newRootCmd()
	cmd.SetOut(out)
	cmd.SetErr(&lockedBuffer{})
	cmd.SetArgs([]string{"watch", "--jq", ".problem", path})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	reports := func() int { return strings.Count(out.String(), path) }
	require.Eventually(t, func() bool { return reports() == 1 }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	require.Eventually(t, func() bool { return reports() >= 2 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
