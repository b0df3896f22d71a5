// ABOUTME: Tests for the feedstore CLI commands
// ABOUTME: Runs the app in-process against temporary config and store files

package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/feedstore/internal/feedstore"
)

type testEnv struct {
	dir    string
	config string
}

func newTestEnv(t *testing.T, storeYAML string) *testEnv {
	return newTestEnvWithLevel(t, storeYAML, "error")
}

func newTestEnvWithLevel(t *testing.T, storeYAML, level string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`
store:
  file: %q
%s
logging:
  level: %s
  format: json
`, filepath.Join(dir, "feeds.db"), storeYAML, level)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0644))
	return &testEnv{dir: dir, config: path}
}

func (e *testEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer

	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr

	argv := append([]string{"feedstore", "--config", e.config}, args...)
	err := app.RunContext(context.Background(), argv)
	return stdout.String(), stderr.String(), err
}

func TestCLI_InsertShow(t *testing.T) {
	env := newTestEnv(t, "")

	_, stderr, err := env.run(t, "insert", "--tag", "news", "--title", "Hello",
		"--link", "https://example.com/hello", "--description", "First post",
		"--creator", "ana", "--created-at", "1709769600")
	require.NoError(t, err)
	assert.Contains(t, stderr, "inserted into news")

	stdout, _, err := env.run(t, "show", "--tag", "news")
	require.NoError(t, err)
	assert.Equal(t, "<item>\n"+
		"  <title>Hello</title>\n"+
		"  <link>https://example.com/hello</link>\n"+
		"  <description>First post</description>\n"+
		"  <dc:creator>ana</dc:creator>\n"+
		"  <dc:date>2024-3-7</dc:date>\n"+
		"</item>\n", stdout)
}

func TestCLI_ShowEmptyTag(t *testing.T) {
	env := newTestEnv(t, "")

	stdout, _, err := env.run(t, "show", "--tag", "nothing")
	require.NoError(t, err)
	assert.Empty(t, stdout)
}

func TestCLI_InsertsAccumulateAcrossRuns(t *testing.T) {
	env := newTestEnv(t, "")

	for i, title := range []string{"first", "second", "third"} {
		_, _, err := env.run(t, "insert", "--tag", "news", "--title", title,
			"--created-at", fmt.Sprint(100*(i+1)))
		require.NoError(t, err)
	}

	stdout, _, err := env.run(t, "show", "--tag", "news")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(stdout, "<item>"))
	assert.Less(t, strings.Index(stdout, "first"), strings.Index(stdout, "second"))
	assert.Less(t, strings.Index(stdout, "second"), strings.Index(stdout, "third"))
}

func TestCLI_CapacityFromConfig(t *testing.T) {
	env := newTestEnv(t, "  max: 2\n")

	for i, title := range []string{"A", "B", "C"} {
		_, _, err := env.run(t, "insert", "--tag", "news", "--title", title,
			"--created-at", fmt.Sprint(100*(i+1)))
		require.NoError(t, err)
	}

	stdout, _, err := env.run(t, "show", "--tag", "news")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "<title>A</title>")
	assert.Contains(t, stdout, "<title>B</title>")
	assert.Contains(t, stdout, "<title>C</title>")
	assert.Less(t, strings.Index(stdout, "<title>B</title>"), strings.Index(stdout, "<title>C</title>"))
}

func TestCLI_External(t *testing.T) {
	env := newTestEnv(t, "")
	ext := filepath.Join(env.dir, "ext.db")

	_, _, err := env.run(t, "insert", "--external", ext, "--tag", "releases",
		"--title", "v2", "--created-at", "200")
	require.NoError(t, err)
	_, _, err = env.run(t, "insert", "--external", ext, "--tag", "releases",
		"--title", "v1", "--created-at", "100")
	require.NoError(t, err)

	stdout, _, err := env.run(t, "show", "--external", ext, "--tag", "releases")
	require.NoError(t, err)
	assert.Less(t, strings.Index(stdout, "v1"), strings.Index(stdout, "v2"))

	// The local store never saw them.
	stdout, _, err = env.run(t, "show", "--tag", "releases")
	require.NoError(t, err)
	assert.Empty(t, stdout)
}

func TestCLI_Tidy(t *testing.T) {
	env := newTestEnv(t, "  expire: days\n  days: 1\n  remove_expired: true\n")
	old := time.Now().Add(-48 * time.Hour).Unix()

	_, _, err := env.run(t, "insert", "--tag", "news", "--title", "old", "--created-at", fmt.Sprint(old))
	require.NoError(t, err)
	_, _, err = env.run(t, "insert", "--tag", "news", "--title", "fresh")
	require.NoError(t, err)

	_, stderr, err := env.run(t, "tidy")
	require.NoError(t, err)
	assert.Contains(t, stderr, "removed 1 expired items")

	_, stderr, err = env.run(t, "tidy")
	require.NoError(t, err)
	assert.Contains(t, stderr, "removed 0 expired items")
}

func TestCLI_Check(t *testing.T) {
	env := newTestEnv(t, "")

	_, stderr, err := env.run(t, "check", filepath.Join(env.dir, "missing.db"))
	require.NoError(t, err)
	assert.Contains(t, stderr, "usable")

	junk := filepath.Join(env.dir, "junk.db")
	require.NoError(t, os.WriteFile(junk, bytes.Repeat([]byte("x"), 16*1024), 0600))

	_, stderr, err = env.run(t, "check", junk)
	assert.ErrorIs(t, err, feedstore.ErrNotAStoreFile)
	assert.Contains(t, stderr, "is not a bolt store file")
}

func TestCLI_OpenRejectsForeignFile(t *testing.T) {
	env := newTestEnv(t, "")
	junk := filepath.Join(env.dir, "junk.db")
	require.NoError(t, os.WriteFile(junk, bytes.Repeat([]byte("x"), 16*1024), 0600))

	_, _, err := env.run(t, "--file", junk, "show", "--tag", "news")
	assert.ErrorIs(t, err, feedstore.ErrNotAStoreFile)
}

func TestCLI_MetricsDump(t *testing.T) {
	env := newTestEnv(t, "metrics:\n  enabled: true\n")

	_, stderr, err := env.run(t, "insert", "--tag", "news", "--title", "x")
	require.NoError(t, err)
	assert.Contains(t, stderr, `feedstore_inserts_total{result="ok",target="local"} 1`)
	assert.Contains(t, stderr, "feedstore_slot 1")
}

func TestCLI_BadConfig(t *testing.T) {
	env := newTestEnv(t, "  driver: leveldb\n")

	_, _, err := env.run(t, "show", "--tag", "news")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}

func TestCLI_LoggingLevelReachesEveryComponent(t *testing.T) {
	verbose := newTestEnvWithLevel(t, "", "debug")
	ext := filepath.Join(verbose.dir, "ext.db")

	_, stderr, err := verbose.run(t, "insert", "--tag", "news", "--title", "x")
	require.NoError(t, err)
	assert.Contains(t, stderr, `"msg":"bolt store opened"`)
	assert.Contains(t, stderr, `"component":"kv"`)

	_, stderr, err = verbose.run(t, "insert", "--external", ext, "--tag", "news", "--title", "x")
	require.NoError(t, err)
	assert.Contains(t, stderr, `"msg":"sql backend opened"`)
	assert.Contains(t, stderr, `"component":"sqlbackend"`)

	quiet := newTestEnvWithLevel(t, "", "error")
	_, stderr, err = quiet.run(t, "insert", "--external", filepath.Join(quiet.dir, "ext.db"), "--tag", "news", "--title", "x")
	require.NoError(t, err)
	assert.NotContains(t, stderr, "sql backend opened")
	assert.NotContains(t, stderr, `"msg":`)
}
