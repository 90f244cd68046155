// Package config loads the optional composite.yaml file and resolves defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap/zapcore"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"gopkg.in/yaml.v3"
)

// FileName is the name of the optional configuration file.
const FileName = "composite.yaml"

// Config represents the optional composite.yaml configuration.
type Config struct {
	App         AppConfig         `yaml:"app"`
	Log         LogConfig         `yaml:"log"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
	Reconciler  ReconcilerConfig  `yaml:"reconciler"`
}

// AppConfig contains application metadata.
type AppConfig struct {
	Name string `yaml:"name,omitempty"`
}

// LogConfig selects the zap logger used for diagnostics.
type LogConfig struct {
	Level    string `yaml:"level,omitempty"`
	Encoding string `yaml:"encoding,omitempty"`
}

// DiagnosticsConfig controls warning output.
type DiagnosticsConfig struct {
	// Verbose includes stack traces in logged diagnostics.
	Verbose bool `yaml:"verbose,omitempty"`
}

// ReconcilerConfig tunes the reconciler.
type ReconcilerConfig struct {
	MaxCascade int `yaml:"max_cascade,omitempty"`
}

// Resolved contains resolved configuration values.
type Resolved struct {
	Root        string
	ModulePath  string
	AppName     string
	LogLevel    string
	LogEncoding string
	Verbose     bool
	MaxCascade  int
}

// DefaultMaxCascade is the flush round limit used when none is configured.
const DefaultMaxCascade = 100

// LoadOptional reads composite.yaml if present.
func LoadOptional(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}

	return &cfg, nil
}

// Resolve loads composite.yaml (if present) and resolves defaults.
func Resolve(dir string) (*Resolved, error) {
	modulePath, err := modulePath(dir)
	if err != nil {
		return nil, err
	}

	cfg, err := LoadOptional(dir)
	if err != nil {
		return nil, err
	}

	appName := strings.TrimSpace(cfg.App.Name)
	if appName == "" {
		appName = defaultAppName(modulePath, dir)
	}

	level := strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if level == "" {
		level = "warn"
	}
	if _, err := zapcore.ParseLevel(level); err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}

	encoding := strings.ToLower(strings.TrimSpace(cfg.Log.Encoding))
	if encoding == "" {
		encoding = "console"
	}
	if encoding != "console" && encoding != "json" {
		return nil, fmt.Errorf("log.encoding must be console or json (got %q)", cfg.Log.Encoding)
	}

	maxCascade := cfg.Reconciler.MaxCascade
	if maxCascade == 0 {
		maxCascade = DefaultMaxCascade
	}
	if maxCascade < 0 {
		return nil, fmt.Errorf("reconciler.max_cascade must be positive (got %d)", maxCascade)
	}

	return &Resolved{
		Root:        dir,
		ModulePath:  modulePath,
		AppName:     appName,
		LogLevel:    level,
		LogEncoding: encoding,
		Verbose:     cfg.Diagnostics.Verbose,
		MaxCascade:  maxCascade,
	}, nil
}

// FindProjectRoot walks up from the current directory to find go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return FindRootFrom(dir)
}

// FindRootFrom walks up from dir to find go.mod.
func FindRootFrom(dir string) (string, error) {
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a Go module (no go.mod found)")
		}
		dir = parent
	}
}

func modulePath(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return "", fmt.Errorf("failed to read go.mod: %w", err)
	}
	path := modfile.ModulePath(data)
	if path == "" {
		return "", fmt.Errorf("could not determine module path from go.mod")
	}
	return path, nil
}

func defaultAppName(modulePath, dir string) string {
	base := filepath.Base(dir)
	modName, _, ok := module.SplitPathVersion(modulePath)
	if ok {
		parts := strings.Split(modName, "/")
		if len(parts) > 0 {
			base = parts[len(parts)-1]
		}
	}
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "composite_app"
	}
	return base
}

// Default returns the defaults used outside any Go module.
func Default(dir string) *Resolved {
	name := filepath.Base(dir)
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "composite_app"
	}
	return &Resolved{
		Root:        dir,
		AppName:     name,
		LogLevel:    "warn",
		LogEncoding: "console",
		MaxCascade:  DefaultMaxCascade,
	}
}
