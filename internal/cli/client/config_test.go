package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withConfigPath(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	old := configPath
	configPath = func() (string, error) { return path, nil }
	t.Cleanup(func() { configPath = old })

	return path
}

func TestDefaultConfigPath_EnvOverride(t *testing.T) {
	t.Setenv(envConfigPath, "/tmp/copilot-test/config.json")

	path, err := defaultConfigPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/copilot-test/config.json", path)
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv(envConfigPath, "")
	path, err := defaultConfigPath()
	if err != nil {
		t.Skip("no user config directory in this environment")
	}
	assert.True(t, filepath.IsAbs(path))
	assert.True(t, strings.HasSuffix(path, filepath.Join("testcopilot", "config.json")))
}

func TestLoadGlobalConfig_FileNotExists(t *testing.T) {
	withConfigPath(t)

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Nil(t, config)
}

func TestLoadGlobalConfig_InvalidJSON(t *testing.T) {
	path := withConfigPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := LoadGlobalConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse "+path)
}

func TestSaveGlobalConfig_RoundTrip(t *testing.T) {
	path := withConfigPath(t)

	err := SaveGlobalConfig(&GlobalConfig{APIURL: "http://copilot.internal:9000", DefaultProject: "p-1"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]string
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "http://copilot.internal:9000", raw["api_url"])
	assert.Equal(t, "p-1", raw["default_project"])

	loaded, err := LoadGlobalConfig()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "p-1", loaded.DefaultProject)
}

func TestSaveGlobalConfig_Permissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes differ on windows")
	}
	path := withConfigPath(t)

	require.NoError(t, SaveGlobalConfig(&GlobalConfig{DefaultProject: "p-1"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestUpdateGlobalConfig_KeepsOtherFields(t *testing.T) {
	withConfigPath(t)
	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIURL: "http://copilot.internal:9000"}))

	require.NoError(t, setDefaultProject("p-2"))

	loaded, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Equal(t, &GlobalConfig{APIURL: "http://copilot.internal:9000", DefaultProject: "p-2"}, loaded)

	entries, err := os.ReadDir(filepath.Dir(mustConfigPath(t)))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func mustConfigPath(t *testing.T) string {
	t.Helper()
	p, err := configPath()
	require.NoError(t, err)
	return p
}

func TestSaveGlobalConfig_NilConfig(t *testing.T) {
	withConfigPath(t)

	err := SaveGlobalConfig(nil)
	assert.Error(t, err)
}

func TestResolveProject(t *testing.T) {
	withConfigPath(t)

	_, err := resolveProject("")
	assert.ErrorIs(t, err, ErrNoProject)

	id, err := resolveProject("explicit")
	require.NoError(t, err)
	assert.Equal(t, "explicit", id)

	require.NoError(t, setDefaultProject("saved"))
	id, err = resolveProject("")
	require.NoError(t, err)
	assert.Equal(t, "saved", id)

	id, err = resolveProject("explicit")
	require.NoError(t, err)
	assert.Equal(t, "explicit", id)
}
