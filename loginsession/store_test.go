package loginsession_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hal9ai/h9login/loginsession"
	"github.com/stretchr/testify/require"
)

func TestMemoryTokenStore(t *testing.T) {
	store := loginsession.NewMemoryTokenStore()

	token, err := store.Load()
	require.NoError(t, err)
	require.Empty(t, token)

	require.Error(t, store.Save(""), "empty tokens are rejected")
	require.NoError(t, store.Save("abc"))

	token, err = store.Load()
	require.NoError(t, err)
	require.Equal(t, "abc", token)

	require.NoError(t, store.Save("def"), "a new login overwrites the stored token")
	token, err = store.Load()
	require.NoError(t, err)
	require.Equal(t, "def", token)

	require.NoError(t, store.Clear())
	token, err = store.Load()
	require.NoError(t, err)
	require.Empty(t, token)
}

func TestFileTokenStore(t *testing.T) {
	dir := t.TempDir()
	store, err := loginsession.NewFileTokenStore(dir)
	require.NoError(t, err)

	token, err := store.Load()
	require.NoError(t, err)
	require.Empty(t, token, "missing file reads as no token")

	require.NoError(t, store.Save("abc"))

	// The token survives a new store instance, like a page reload.
	reloaded, err := loginsession.NewFileTokenStore(dir)
	require.NoError(t, err)
	token, err = reloaded.Load()
	require.NoError(t, err)
	require.Equal(t, "abc", token)

	data, err := os.ReadFile(filepath.Join(dir, loginsession.TokenKey))
	require.NoError(t, err)
	require.Equal(t, "abc\n", string(data))

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear(), "clearing twice is fine")
	token, err = store.Load()
	require.NoError(t, err)
	require.Empty(t, token)
}
