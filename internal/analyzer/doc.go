// Package analyzer looks for the target identity in fetched pages.
//
// A page is decoded to UTF-8, reduced to its visible text, and searched for
// each name variation in order with a case-insensitive whole-word pattern.
// The first variation that matches produces the page's only match record,
// carrying a context window around the hit and a sentiment score computed
// over the whole page text.
//
// Word boundaries are checked in Go instead of with \b, which in RE2 only
// knows ASCII. "Dupré" must not match inside "Duprémont", and names in
// non-Latin scripts need the same treatment.
package analyzer
