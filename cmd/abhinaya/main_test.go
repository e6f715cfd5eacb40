package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/abhinaya/internal/config"
	"github.com/ayusman/abhinaya/internal/expression"
	"github.com/ayusman/abhinaya/internal/store"
)

func resolveArgs(t *testing.T, args ...string) (config.Config, error) {
	t.Helper()

	opts := &options{}
	cmd := newRootCmdWith(opts)
	require.NoError(t, cmd.ParseFlags(args))
	return opts.resolve(cmd)
}

func TestResolve_Defaults(t *testing.T) {
	cfg, err := resolveArgs(t)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestResolve_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abhinaya.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
device: 2
fps: 25
output: file.mp4
headless: true
`), 0o644))

	cfg, err := resolveArgs(t, "--config", path, "--output", "flag.mp4", "--journal", "j.db")
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Device, "file value kept")
	assert.Equal(t, 25, cfg.FPS, "file value kept")
	assert.True(t, cfg.Headless)
	assert.Equal(t, "flag.mp4", cfg.Output, "flag wins")
	assert.Equal(t, "j.db", cfg.Journal)
	assert.Equal(t, config.Default().Window, cfg.Window)
}

func TestResolve_Invalid(t *testing.T) {
	_, err := resolveArgs(t, "--fps", "0")
	assert.ErrorContains(t, err, "fps")

	_, err = resolveArgs(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSessionsCommand(t *testing.T) {
	journal := filepath.Join(t.TempDir(), "journal.db")

	st, err := store.New(journal)
	require.NoError(t, err)

	started := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	sess := &store.Session{ID: "session-1", OutputPath: "output_video.mp4", FPS: 30, StartedAt: started}
	require.NoError(t, st.Sessions().Create(sess))
	for i, label := range []expression.Label{expression.Happy, expression.Sad, expression.Happy} {
		require.NoError(t, st.Expressions().Record(&store.Expression{SessionID: sess.ID, FrameIndex: i, Label: label}))
	}
	require.NoError(t, st.Sessions().Finish(sess.ID, 90, 3, started.Add(3*time.Second)))
	require.NoError(t, st.Close())

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"sessions", "--journal", journal})
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "EXPRESSIONS")
	assert.Contains(t, lines[2], "session-1")
	assert.Contains(t, lines[2], "3s")
	assert.Contains(t, lines[2], "90")
	assert.Contains(t, lines[2], "Happy=2 Sad=1")
}

func TestSessionsCommand_Empty(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"sessions", "--journal", filepath.Join(t.TempDir(), "journal.db")})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "No sessions recorded.\n", out.String())
}

func TestSessionsCommand_RequiresJournal(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"sessions"})

	assert.ErrorContains(t, cmd.Execute(), "--journal")
}

func TestFormatCounts(t *testing.T) {
	assert.Equal(t, "-", formatCounts(nil))
	assert.Equal(t, "Happy=1 Neutral=4", formatCounts(map[expression.Label]int{
		expression.Neutral: 4,
		expression.Happy:   1,
	}))
}

func TestSessionsDeleteCommand(t *testing.T) {
	journal := filepath.Join(t.TempDir(), "journal.db")

	st, err := store.New(journal)
	require.NoError(t, err)
	require.NoError(t, st.Sessions().Create(&store.Session{ID: "keep", OutputPath: "a.mp4", FPS: 30}))
	require.NoError(t, st.Sessions().Create(&store.Session{ID: "drop", OutputPath: "b.mp4", FPS: 30}))
	require.NoError(t, st.Expressions().Record(&store.Expression{SessionID: "drop", Label: expression.Sad}))
	require.NoError(t, st.Close())

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"sessions", "delete", "drop", "--journal", journal})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "Deleted session drop\n", out.String())

	st, err = store.New(journal)
	require.NoError(t, err)
	defer st.Close()

	sessions, err := st.Sessions().List()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "keep", sessions[0].ID)

	exprs, err := st.Expressions().ListBySession("drop")
	require.NoError(t, err)
	assert.Empty(t, exprs)

	cmd = newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"sessions", "delete", "drop", "--journal", journal})
	assert.ErrorContains(t, cmd.Execute(), "not found")
}
