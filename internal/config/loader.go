package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".reaper"

// xdgConfigFile is the file looked up under the XDG config directory.
const xdgConfigFile = "config.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile loads a YAML configuration file.
//
// Unknown keys are rejected: a misspelled "blacklist" or "controlPassword"
// would otherwise be dropped silently and the crawl would run with weaker
// settings than the user asked for. An empty file is a valid, empty
// configuration. If the file does not exist, ErrConfigNotFound is returned.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}
	return &cf, nil
}

// FindConfigFile returns the configuration file to load, or "" when there
// is none.
//
// An explicit configPath is used as is and never falls back to the search.
// Otherwise the first existing file among SearchPaths wins.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		return firstExisting(configPath)
	}
	return firstExisting(SearchPaths()...)
}

// SearchPaths lists the implicit configuration locations in priority order:
// .reaper in the working directory, reaper/config.yaml under the XDG config
// directory, then .reaper in the home directory. Locations that cannot be
// resolved are left out.
func SearchPaths() []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, DefaultConfigFile))
	}
	paths = append(paths, filepath.Join(xdg.ConfigHome, AppName, xdgConfigFile))
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, DefaultConfigFile))
	}
	return paths
}

// firstExisting returns the first path that names a regular file.
func firstExisting(paths ...string) string {
	for _, p := range paths {
		if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
			return p
		}
	}
	return ""
}
