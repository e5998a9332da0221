package local_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/keyspace-status/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("creates missing directory", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "reports")
		s, err := local.New(local.Config{BaseDir: dir})
		require.NoError(t, err)
		require.NotNil(t, s)
		info, err := os.Stat(dir)
		require.NoError(t, err)
		require.True(t, info.IsDir())
	})

	t.Run("missing base dir", func(t *testing.T) {
		t.Parallel()
		_, err := local.New(local.Config{BaseDir: "  "})
		require.Error(t, err)
	})

	t.Run("base dir is a file", func(t *testing.T) {
		t.Parallel()
		f := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(f, []byte("x"), 0o600))
		_, err := local.New(local.Config{BaseDir: f})
		require.Error(t, err)
	})
}

func TestPutObject(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := local.New(local.Config{BaseDir: dir})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("nested path", func(t *testing.T) {
		uri, err := s.PutObject(ctx, "reports/abc/final.json", "application/json", strings.NewReader(`{"ok":true}`))
		require.NoError(t, err)
		want := filepath.Join(dir, "reports/abc/final.json")
		require.Equal(t, "file://"+want, uri)

		// #nosec G304 -- test reads from the controlled temp directory.
		got, err := os.ReadFile(want)
		require.NoError(t, err)
		require.Equal(t, `{"ok":true}`, string(got))
	})

	t.Run("overwrite", func(t *testing.T) {
		_, err := s.PutObject(ctx, "same.json", "", strings.NewReader("one"))
		require.NoError(t, err)
		_, err = s.PutObject(ctx, "same.json", "", strings.NewReader("two"))
		require.NoError(t, err)
		// #nosec G304 -- test reads from the controlled temp directory.
		got, err := os.ReadFile(filepath.Join(dir, "same.json"))
		require.NoError(t, err)
		require.Equal(t, "two", string(got))
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := s.PutObject(ctx, "", "", strings.NewReader("x"))
		require.Error(t, err)
	})

	t.Run("traversal", func(t *testing.T) {
		_, err := s.PutObject(ctx, "../escape.json", "", strings.NewReader("x"))
		require.Error(t, err)
	})
}
