package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoTarget is returned when no target name is given.
	ErrNoTarget = errors.New("no target specified: provide --name or target.name in the config file")

	// ErrNoSeeds is returned when no seed URL is given.
	ErrNoSeeds = errors.New("no seed URL specified: provide --seed or seeds in the config file")

	// ErrInvalidWorkers is returned when the worker count is out of range.
	ErrInvalidWorkers = errors.New("invalid worker count: must be between 1 and 3")

	// ErrInvalidMaxRetries is returned when max retries is not positive.
	ErrInvalidMaxRetries = errors.New("invalid max retries: must be positive")

	// ErrInvalidBackoff is returned when the backoff ceiling is not positive.
	ErrInvalidBackoff = errors.New("invalid backoff ceiling: must be positive")

	// ErrInvalidSaveInterval is returned when the snapshot interval is not positive.
	ErrInvalidSaveInterval = errors.New("invalid save interval: must be positive")

	// ErrInvalidContextRadius is returned when the context radius is negative.
	ErrInvalidContextRadius = errors.New("invalid context radius: must be non-negative")

	// ErrInvalidThinkTime is returned when the think-time parameters are unusable.
	ErrInvalidThinkTime = errors.New("invalid think time: scale must be non-negative and shape positive")

	// ErrInvalidTimeout is returned when a fetch timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidProbability is returned when the renew probability is outside [0,1].
	ErrInvalidProbability = errors.New("invalid renew probability: must be between 0 and 1")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidSocksAddress is returned when the SOCKS address is not host:port.
	ErrInvalidSocksAddress = errors.New("invalid SOCKS address: expected host:port")

	// ErrInvalidControlAddress is returned when the control address is not host:port.
	ErrInvalidControlAddress = errors.New("invalid control address: expected host:port")

	// ErrNoDataDir is returned when no data directory is configured.
	ErrNoDataDir = errors.New("no data directory configured")
)
