package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/npcmod/internal/testutil"
)

func TestValidate_ShippedContent(t *testing.T) {
	root := filepath.Join(testutil.RepoRoot(t), "content")
	n, err := validate(
		filepath.Join(root, "world.yaml"),
		filepath.Join(root, "npcs"),
		filepath.Join(root, "scripts"),
	)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestValidate_MissingScriptFunction(t *testing.T) {
	dir := t.TempDir()
	worldFile := filepath.Join(dir, "world.yaml")
	require.NoError(t, os.WriteFile(worldFile, []byte("world:\n  id: tiny\n"), 0o644))
	npcDir := filepath.Join(dir, "npcs")
	require.NoError(t, os.Mkdir(npcDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(npcDir, "dealer.yaml"), []byte(`
id: dealer
first_name: Dealer
physical: false
dealer: {}
events:
  dealer:
    recruited: {hook: on_recruited}
    recommended: {hook: on_recommended}
script: dealer.lua
`), 0o644))
	scriptDir := filepath.Join(dir, "scripts")
	require.NoError(t, os.Mkdir(scriptDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(scriptDir, "dealer.lua"), []byte("function on_recruited() end\n"), 0o644))

	n, err := validate(worldFile, npcDir, scriptDir)
	assert.Equal(t, 1, n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "on_recommended")
	assert.NotContains(t, err.Error(), `"on_recruited"`)

	_, err = validate(worldFile, npcDir, "")
	assert.NoError(t, err, "script checks are skipped without a script dir")
}

func TestValidate_BadScript(t *testing.T) {
	dir := t.TempDir()
	worldFile := filepath.Join(dir, "world.yaml")
	require.NoError(t, os.WriteFile(worldFile, []byte("world:\n  id: tiny\n"), 0o644))
	npcDir := filepath.Join(dir, "npcs")
	require.NoError(t, os.Mkdir(npcDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(npcDir, "a.yaml"), []byte(`
id: a
first_name: A
physical: false
script: a.lua
`), 0o644))

	_, err := validate(worldFile, npcDir, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `npc "a"`)
}
