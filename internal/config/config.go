// Package config resolves fx settings from defaults, a global user file, the
// project file and command-line overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tailscale/hujson"
)

// FileName is the project config file looked up in the working directory.
const FileName = ".fx.json"

// Defaults.
const (
	DefaultCatalog     = "fields.json"
	DefaultLockTimeout = 5 * time.Second
)

// Config errors.
var (
	ErrFileNotFound = errors.New("config file not found")
	ErrFileRead     = errors.New("cannot read config file")
	ErrInvalid      = errors.New("invalid config file")
	ErrCatalogEmpty = errors.New("catalog cannot be empty")
)

// Config holds the resolved settings.
type Config struct {
	Catalog     string `json:"catalog"`
	HistoryFile string `json:"history_file,omitempty"`
	LockTimeout string `json:"lock_timeout,omitempty"`

	// Resolved values, not serialized.
	EffectiveCwd string        `json:"-"`
	CatalogAbs   string        `json:"-"`
	HistoryAbs   string        `json:"-"`
	Timeout      time.Duration `json:"-"`

	Sources Sources `json:"-"`
}

// Sources records which files contributed to a Config.
type Sources struct {
	Global  string
	Project string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Catalog:     DefaultCatalog,
		LockTimeout: DefaultLockTimeout.String(),
	}
}

// Input carries everything Load reads besides the files themselves.
type Input struct {
	WorkDir         string            // -C/--cwd; empty means os.Getwd
	ConfigPath      string            // -c/--config; must exist when set
	CatalogOverride string            // --catalog
	Env             map[string]string // environment
}

// Load resolves the configuration. Precedence, lowest first: defaults, the
// global file ($XDG_CONFIG_HOME/fx/config.json or ~/.config/fx/config.json),
// the project file (.fx.json in the working directory, or the -c file in its
// place), then command-line overrides. Paths in the result are absolute.
func Load(in Input) (Config, error) {
	workDir := in.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}

		workDir = wd
	}

	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return Config{}, fmt.Errorf("resolve working directory: %w", err)
	}

	cfg := Default()

	if path := globalPath(in.Env); path != "" {
		fileCfg, loaded, err := loadFile(path, false)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			cfg = merge(cfg, fileCfg)
			cfg.Sources.Global = path
		}
	}

	projectPath, mustExist := filepath.Join(workDir, FileName), false
	if in.ConfigPath != "" {
		projectPath, mustExist = in.ConfigPath, true
		if !filepath.IsAbs(projectPath) {
			projectPath = filepath.Join(workDir, projectPath)
		}
	}

	fileCfg, loaded, err := loadFile(projectPath, mustExist)
	if err != nil {
		return Config{}, err
	}

	if loaded {
		cfg = merge(cfg, fileCfg)
		cfg.Sources.Project = projectPath
	}

	if in.CatalogOverride != "" {
		cfg.Catalog = in.CatalogOverride
	}

	if strings.TrimSpace(cfg.Catalog) == "" {
		return Config{}, ErrCatalogEmpty
	}

	cfg.Timeout, err = time.ParseDuration(cfg.LockTimeout)
	if err != nil || cfg.Timeout < 0 {
		return Config{}, fmt.Errorf("%w: lock_timeout %q is not a duration", ErrInvalid, cfg.LockTimeout)
	}

	cfg.EffectiveCwd = workDir
	cfg.CatalogAbs = absolute(workDir, cfg.Catalog)

	if cfg.HistoryFile != "" {
		cfg.HistoryAbs = absolute(workDir, expandHome(cfg.HistoryFile, in.Env))
	} else if home := in.Env["HOME"]; home != "" {
		cfg.HistoryAbs = filepath.Join(home, ".fx_history")
	}

	return cfg, nil
}

// globalPath returns the global config location, or "" without a home.
func globalPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "fx", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "fx", "config.json")
	}

	return ""
}

func loadFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !mustExist {
			return Config{}, false, nil
		}

		if os.IsNotExist(err) {
			return Config{}, false, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}

		return Config{}, false, fmt.Errorf("%w: %s", ErrFileRead, path)
	}

	cfg, err := parse(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrInvalid, path, err)
	}

	return cfg, true, nil
}

func parse(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	var raw map[string]any

	_ = json.Unmarshal(standardized, &raw)

	if v, ok := raw["catalog"].(string); ok && strings.TrimSpace(v) == "" {
		return Config{}, ErrCatalogEmpty
	}

	return cfg, nil
}

func merge(base, overlay Config) Config {
	if overlay.Catalog != "" {
		base.Catalog = overlay.Catalog
	}

	if overlay.HistoryFile != "" {
		base.HistoryFile = overlay.HistoryFile
	}

	if overlay.LockTimeout != "" {
		base.LockTimeout = overlay.LockTimeout
	}

	return base
}

func absolute(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(dir, path)
}

func expandHome(path string, env map[string]string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok && env["HOME"] != "" {
		return filepath.Join(env["HOME"], rest)
	}

	return path
}

// Format renders the effective settings as HuJSON-compatible JSON.
func Format(cfg Config) (string, error) {
	out := struct {
		Catalog     string `json:"catalog"`
		HistoryFile string `json:"history_file,omitempty"`
		LockTimeout string `json:"lock_timeout"`
	}{
		Catalog:     cfg.CatalogAbs,
		HistoryFile: cfg.HistoryAbs,
		LockTimeout: cfg.Timeout.String(),
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("format config: %w", err)
	}

	return string(data), nil
}
