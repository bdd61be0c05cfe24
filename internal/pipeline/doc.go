// Package pipeline runs the per-page steps of a crawl task.
//
// Once a page has been fetched it passes through an ordered list of steps:
// the analyze step looks for mentions of the target and appends them to the
// match log, the archive step stores the raw content, and the link step
// feeds discovered links back into the frontier. Each step receives the
// same *model.Page and may fill in fields for the steps after it.
package pipeline
