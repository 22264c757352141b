// Package config loads workspace settings from settings.yaml, with
// overrides taken from the environment and an optional .env file.
package config

// config.go: workspace settings.
//
// A settings file looks like:
//
//	network: sui
//	max_calls_per_package: 2
//	workers: 4
//	skip:
//	  - "Skip(./0xdead*)"
//	  - "fixtures/**"
//	log:
//	  level: debug
//	  file: inhabit.log
//	profiles_file: networks.yaml
//
// Skip patterns may be bare globs or wrapped in Skip(...).

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"inhabit/internal/chain"
)

// FileName is the settings file name inside a workspace directory.
const FileName = "settings.yaml"

// Environment variables that override settings.yaml.
const (
	EnvNetwork  = "INHABIT_NETWORK"
	EnvMaxCalls = "INHABIT_MAX_CALLS"
	EnvLogLevel = "INHABIT_LOG_LEVEL"
	EnvLogFile  = "INHABIT_LOG_FILE"
)

// Settings holds workspace configuration.
type Settings struct {
	Network            string          `yaml:"network"`
	MaxCallsPerPackage int             `yaml:"max_calls_per_package"`
	Workers            int             `yaml:"workers"`
	Skip               []string        `yaml:"skip"`
	Log                Log             `yaml:"log"`
	Profiles           []chain.Profile `yaml:"profiles,omitempty"`
	ProfilesFile       string          `yaml:"profiles_file,omitempty"`

	dir string
}

// Log configures the CLI logger. File is optional; when set, output is
// also written there with size-based rotation.
type Log struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
	MaxAgeDays int    `yaml:"max_age_days,omitempty"`
	Compress   bool   `yaml:"compress,omitempty"`
}

// Default returns the settings used when no settings file exists.
func Default() *Settings {
	return &Settings{
		Network:            "sui",
		MaxCallsPerPackage: 1,
		Workers:            4,
		Log:                Log{Level: "info"},
	}
}

// Load reads dir/settings.yaml, fills unset fields from Default and applies
// environment overrides. A missing file is not an error. A .env file in the
// current directory is loaded first if present; variables already set in the
// process environment win over it.
func Load(dir string) (*Settings, error) {
	_ = godotenv.Load()

	s := Default()
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", path, err)
		}
	}
	s.dir = dir
	if err := s.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	s.fill()
	return s, nil
}

// Save writes s to dir/settings.yaml.
func Save(dir string, s *Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from the environment as seen through getenv.
// Empty values are ignored.
func (s *Settings) ApplyEnv(getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(EnvNetwork)); v != "" {
		s.Network = v
	}
	if v := strings.TrimSpace(getenv(EnvMaxCalls)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("%s: want a positive integer, got %q", EnvMaxCalls, v)
		}
		s.MaxCallsPerPackage = n
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		s.Log.Level = v
	}
	if v := strings.TrimSpace(getenv(EnvLogFile)); v != "" {
		s.Log.File = v
	}
	return nil
}

func (s *Settings) fill() {
	d := Default()
	if s.Network == "" {
		s.Network = d.Network
	}
	if s.MaxCallsPerPackage < 1 {
		s.MaxCallsPerPackage = d.MaxCallsPerPackage
	}
	if s.Workers < 1 {
		s.Workers = d.Workers
	}
	if s.Log.Level == "" {
		s.Log.Level = d.Log.Level
	}
}

// LogFile returns the log file path resolved against the workspace
// directory, or "" when file logging is off.
func (s *Settings) LogFile() string {
	if s.Log.File == "" || filepath.IsAbs(s.Log.File) || s.dir == "" {
		return s.Log.File
	}
	return filepath.Join(s.dir, s.Log.File)
}

// Registry returns the built-in profiles plus those declared inline and in
// ProfilesFile (relative paths resolve against the workspace directory).
func (s *Settings) Registry() (*chain.Registry, error) {
	reg := chain.NewRegistry()
	for _, p := range s.Profiles {
		if err := reg.Add(chain.WithDefaults(p)); err != nil {
			return nil, fmt.Errorf("settings profile %q: %w", p.Name, err)
		}
	}
	if s.ProfilesFile != "" {
		path := s.ProfilesFile
		if !filepath.IsAbs(path) && s.dir != "" {
			path = filepath.Join(s.dir, path)
		}
		if err := reg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Profile resolves the configured network to a chain profile.
func (s *Settings) Profile() (chain.Profile, error) {
	reg, err := s.Registry()
	if err != nil {
		return chain.Profile{}, err
	}
	return reg.Get(s.Network)
}

// IsSkipped reports whether name (a package name or forward-slash relative
// path) matches any skip rule. Safe to call on a nil *Settings receiver.
func (s *Settings) IsSkipped(name string) bool {
	if s == nil {
		return false
	}
	for _, rule := range s.Skip {
		if matchSkipPattern(parseSkipRule(rule), name) {
			return true
		}
	}
	return false
}

// parseSkipRule extracts the glob from a skip rule.
//
//	"Skip(./fixtures/**)" → "fixtures/**"
//	"fixtures/**"         → "fixtures/**"
func parseSkipRule(rule string) string {
	if strings.HasPrefix(rule, "Skip(") && strings.HasSuffix(rule, ")") {
		rule = rule[5 : len(rule)-1]
	}
	return strings.TrimPrefix(rule, "./")
}

// matchSkipPattern reports whether name matches a skip glob.
//
// "prefix/**" matches the prefix itself and every path beneath it. All other
// patterns use filepath.Match semantics (single * does not cross /).
func matchSkipPattern(pattern, name string) bool {
	if strings.HasSuffix(pattern, "/**") {
		prefix := strings.TrimSuffix(pattern, "/**")
		return name == prefix || strings.HasPrefix(name, prefix+"/")
	}
	matched, _ := filepath.Match(pattern, name)
	return matched
}
