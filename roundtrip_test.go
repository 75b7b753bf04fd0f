package daobuilder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everydev1618/daobuilder/model"
)

func TestReformat(t *testing.T) {
	src := `
app:
  orchestration:
    memory: *mem
memory: &mem
  type: postgres
`
	_, err := Reformat([]byte(src))
	require.Error(t, err, "alias before its anchor is a parse error")
	assert.True(t, model.IsParseError(err))

	src = `
app:
  name: demo
memory: &mem
  type: postgres
agents:
  writer:
    memory: *mem
`
	out, err := Reformat([]byte(src))
	require.NoError(t, err)
	got := string(out)
	assert.Less(t, strings.Index(got, "memory: &mem"), strings.Index(got, "agents:"))
	assert.Less(t, strings.Index(got, "agents:"), strings.Index(got, "app:"))

	again, err := Reformat(out)
	require.NoError(t, err)
	assert.Equal(t, got, string(again))
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  name: demo\n"), 0o644))

	s, err := Open(path)
	require.NoError(t, err)
	n, ok := s.Lookup(model.PathOf("app", "name"))
	require.True(t, ok)
	assert.Equal(t, "demo", n.(*model.Scalar).Value)

	_, err = Open(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestHome(t *testing.T) {
	t.Setenv("DAOBUILDER_HOME", "/tmp/dao-home")
	assert.Equal(t, "/tmp/dao-home", Home())
	assert.Equal(t, "/tmp/dao-home/daobuilder.db", DefaultDBPath())
}
