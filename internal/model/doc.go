// Package model defines the data shared across reaper's packages: the
// target identity and its derived name variations, fetched pages, and the
// match records written to the match log.
//
// The types live in their own package so the frontier, fetch, analyzer,
// storage and report packages can exchange them without import cycles.
package model
