// Package frontier holds the mutable crawl state: the visited set, the
// pending queue and the failed-URL map.
//
// A URL is in at most one of pending or visited. NextPending pops and marks
// a URL visited under one mutex, which makes it the single point where a
// URL is claimed by exactly one worker. Snapshots copy the state under that
// mutex and write it out under a separate one, so no I/O happens while the
// state lock is held.
//
// Visited means claimed, not finished. A claim that ends without the URL
// being tried, because the crawl was stopped or the task was cancelled,
// is handed back with Requeue so a resumed crawl fetches it.
package frontier
