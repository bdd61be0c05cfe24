// Package crawler holds the per-page crawl helpers used by the scheduler.
//
// # Components
//
//   - Parser: extracts the title and the outgoing links of an HTML page,
//     resolved against the page URL (or its <base href>) and split into
//     same-host and cross-host links.
//   - RobotsChecker: fetches and caches each host's robots.txt and answers
//     whether a URL may be crawled.
//
// # Link order
//
// Parser.Links returns same-host links before cross-host links. Enqueuing
// in that order lets the crawl exhaust a site before it spreads out.
//
// # Robots policy
//
// robots.txt handling is best effort: a missing, unreachable, oversized or
// unparsable file allows everything, so a broken robots endpoint never
// blocks a crawl.
package crawler
