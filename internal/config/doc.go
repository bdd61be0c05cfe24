// Package config provides configuration structures and utilities for reaper.
// It defines the target identity, seed input, anonymizing proxy endpoints,
// crawl pacing and persistence locations, and the optional YAML file that
// carries per-site overrides.
//
// # Precedence
//
// Values are layered: built-in defaults from NewConfig, then the YAML file,
// then command-line flags the user set explicitly. A flag left at its
// default never overrides the file.
//
// The file is looked up in this order unless --config names one:
//   - .reaper in the working directory
//   - reaper/config.yaml under the XDG config directory
//   - .reaper in the home directory
//
// Design decision: unknown keys in the file are an error rather than being
// ignored because:
//  1. Most keys tighten the crawl (blacklist, ignorePatterns, workers), so a
//     typo would silently make it more aggressive than intended
//  2. Control port credentials that fail to load only show up much later,
//     as refused circuit renewals in the middle of a crawl
package config
