// Package storage persists crawl output: the append-only JSON Lines match
// log and the gzip-compressed raw page archive.
//
// Design decision: both stores are plain files instead of tables in the
// state database because:
//  1. The match log is the product of a crawl and must stay readable with
//     standard tools after the state database is cleaned
//  2. Appending one line per match survives a crash with at most the last
//     line torn, which ReadMatchLog skips
//  3. Raw pages are large and write-once; keeping them out of SQLite keeps
//     frontier snapshots fast
//
// Archived pages are named by a BLAKE2b hash of their URL plus the fetch
// time, so every copy of a page is kept and copies group by URL.
package storage
