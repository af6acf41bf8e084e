package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadParams(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"World","count":3}`), 0o640))

	params := NewParamsLoader().Load(path)
	assert.Equal(t, "World", params["name"])
	assert.Equal(t, float64(3), params["count"])
}

func TestLoadParamsMissingFile(t *testing.T) {
	params := NewParamsLoader().Load(filepath.Join(t.TempDir(), "params.json"))
	assert.NotNil(t, params)
	assert.Empty(t, params)
}

func TestLoadParamsMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params.json")
	require.NoError(t, os.WriteFile(path, []byte(`{oops`), 0o640))

	params := NewParamsLoader().Load(path)
	assert.NotNil(t, params)
	assert.Empty(t, params)
}

func TestLoadParamsJSONNull(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params.json")
	require.NoError(t, os.WriteFile(path, []byte(`null`), 0o640))

	params := NewParamsLoader().Load(path)
	assert.NotNil(t, params)
	assert.Empty(t, params)
}
