package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamsmac/MYDON-sub006/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func env(dir string) map[string]string {
	return map[string]string{
		"HOME":            filepath.Join(dir, "home"),
		"XDG_CONFIG_HOME": filepath.Join(dir, "xdg"),
	}
}

func Test_Load_ReturnsDefaults_When_NoFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg, err := config.Load(config.Input{WorkDir: dir, Env: env(dir)})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "fields.json"), cfg.CatalogAbs)
	assert.Equal(t, config.DefaultLockTimeout, cfg.Timeout)
	assert.Equal(t, filepath.Join(dir, "home", ".fx_history"), cfg.HistoryAbs)
	assert.Equal(t, dir, cfg.EffectiveCwd)
	assert.Equal(t, config.Sources{}, cfg.Sources)
}

func Test_Load_AppliesPrecedence_When_AllLayersPresent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	global := filepath.Join(dir, "xdg", "fx", "config.json")

	writeFile(t, global, `{"catalog": "global.json", "lock_timeout": "2s", "history_file": "~/hist"}`)
	writeFile(t, filepath.Join(dir, config.FileName), `{
		// project wins over global
		"catalog": "project.json",
	}`)

	cfg, err := config.Load(config.Input{WorkDir: dir, Env: env(dir)})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "project.json"), cfg.CatalogAbs)
	assert.Equal(t, 2*time.Second, cfg.Timeout, "global value survives when project omits it")
	assert.Equal(t, filepath.Join(dir, "home", "hist"), cfg.HistoryAbs)
	assert.Equal(t, global, cfg.Sources.Global)
	assert.Equal(t, filepath.Join(dir, config.FileName), cfg.Sources.Project)

	cfg, err = config.Load(config.Input{WorkDir: dir, Env: env(dir), CatalogOverride: "/abs/flag.json"})
	require.NoError(t, err)
	assert.Equal(t, "/abs/flag.json", cfg.CatalogAbs)
}

func Test_Load_FallsBackToHomeConfig_When_XDGUnset(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "home", ".config", "fx", "config.json"), `{"catalog": "home.json"}`)

	cfg, err := config.Load(config.Input{WorkDir: dir, Env: map[string]string{"HOME": filepath.Join(dir, "home")}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "home.json"), cfg.CatalogAbs)
}

func Test_Load_UsesExplicitFile_When_ConfigPathGiven(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, config.FileName), `{"catalog": "ignored.json"}`)
	writeFile(t, filepath.Join(dir, "custom.json"), `{"catalog": "custom-fields.yaml"}`)

	cfg, err := config.Load(config.Input{WorkDir: dir, ConfigPath: "custom.json", Env: env(dir)})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "custom-fields.yaml"), cfg.CatalogAbs)
	assert.Equal(t, filepath.Join(dir, "custom.json"), cfg.Sources.Project)
}

func Test_Load_ReturnsError_When_ConfigInvalid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		content string
		path    string
		want    error
	}{
		{name: "MissingExplicit", path: "nope.json", want: config.ErrFileNotFound},
		{name: "BadJSON", content: `{"catalog": `, want: config.ErrInvalid},
		{name: "EmptyCatalog", content: `{"catalog": "  "}`, want: config.ErrCatalogEmpty},
		{name: "BadTimeout", content: `{"lock_timeout": "soon"}`, want: config.ErrInvalid},
		{name: "NegativeTimeout", content: `{"lock_timeout": "-1s"}`, want: config.ErrInvalid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			in := config.Input{WorkDir: dir, Env: env(dir)}

			if tc.path != "" {
				in.ConfigPath = tc.path
			} else {
				writeFile(t, filepath.Join(dir, config.FileName), tc.content)
			}

			_, err := config.Load(in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func Test_Format_PrintsResolvedValues(t *testing.T) {
	t.Parallel()

	out, err := config.Format(config.Config{CatalogAbs: "/p/fields.json", HistoryAbs: "/h/.fx_history", Timeout: 3 * time.Second})
	require.NoError(t, err)
	assert.JSONEq(t, `{"catalog": "/p/fields.json", "history_file": "/h/.fx_history", "lock_timeout": "3s"}`, out)
}
