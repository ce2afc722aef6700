package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frenchbreeze/breeze/internal/profile"
)

func testCommand(t *testing.T) *cobra.Command {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("BREEZE_DB_DRIVER", "sqlite")
	t.Setenv("BREEZE_CACHE", "file")
	t.Setenv("BREEZE_CACHE_DIR", dir)
	t.Setenv("BREEZE_TZ", "UTC")
	t.Setenv("BREEZE_LOG_LEVEL", "error")

	c := &cobra.Command{Use: "test"}
	c.Flags().String("db", filepath.Join(dir, "breeze.db"), "")
	c.Flags().String("env-file", filepath.Join(dir, "missing.env"), "")
	c.SetContext(context.Background())
	return c
}

func TestOpenApp_InvalidConfig(t *testing.T) {
	c := testCommand(t)
	t.Setenv("BREEZE_DB_DRIVER", "oracle")

	_, err := openApp(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown db driver")
}

func TestOpenLearner_RequiresSignIn(t *testing.T) {
	c := testCommand(t)

	_, err := openLearner(c, true)
	assert.ErrorIs(t, err, errSignedOut)
}

func TestLearner_SessionSurvivesRestart(t *testing.T) {
	c := testCommand(t)
	ctx := c.Context()

	l, err := openLearner(c, false)
	require.NoError(t, err)
	_, err = l.client.SignUp(ctx, "camille@example.com", "secret123")
	require.NoError(t, err)
	require.NoError(t, l.manager.SetLevel(ctx, profile.LevelIntermediate))
	require.NoError(t, l.manager.SetDisplayName(ctx, "Camille", true))
	st := l.countVisit(ctx)
	assert.Equal(t, 1, st.Profile.DailyStreak)
	l.Close()

	// A second invocation restores the cached token and profile.
	l, err = openLearner(c, true)
	require.NoError(t, err)
	defer l.Close()

	p := l.manager.State().Profile
	assert.Equal(t, "Camille", p.Name)
	assert.Equal(t, profile.LevelIntermediate, p.Level)
	assert.Equal(t, 1, p.DailyStreak)

	st = l.countVisit(ctx)
	assert.Equal(t, 1, st.Profile.DailyStreak, "same-day visit is counted once")
}
