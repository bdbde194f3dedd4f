package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Names []string `json:"names"`
}

func TestJSONStore_SaveLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	s, err := NewJSONStore(dir, "data.json")
	require.NoError(t, err)

	var empty doc
	require.NoError(t, s.Load(&empty), "missing file is not an error")
	assert.Nil(t, empty.Names)

	require.NoError(t, s.Save(doc{Names: []string{"Ada", "Grace"}}))

	var got doc
	require.NoError(t, s.Load(&got))
	assert.Equal(t, []string{"Ada", "Grace"}, got.Names)

	_, err = os.Stat(s.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must be renamed away")
}

func TestJSONStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONStore(dir, "data.json")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o600))

	var got doc
	assert.Error(t, s.Load(&got))
}
