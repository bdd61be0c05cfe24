// Package main provides the entry point for the reaper CLI.
//
// reaper crawls the web for mentions of a person, escalating from plain
// HTTP to Tor and headless browsers when sites resist. Crawls can be
// interrupted and resumed.
//
// Usage:
//
//	reaper crawl --name "Jane Doe" --seed https://example.org/
//	reaper report --format markdown
//
// See --help for all available options.
package main

func main() {
	Execute()
}
