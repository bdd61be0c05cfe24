// Package scheduler drives a crawl run.
//
// A Scheduler moves through four states. In Init it restores the frontier
// snapshot, checks the anonymizing proxy and seeds the frontier. In Running
// it claims pending URLs one at a time and hands them to a small worker
// pool, sleeping a heavy-tailed think-time between dispatches. Stop moves
// it to Draining, where no new work is issued and in-flight tasks get a
// bounded time to finish. Stopped is terminal and always ends with a final
// snapshot.
//
// A task runs the robots check, waits for the host's rate limiter, fetches
// through the escalator and passes the page to the pipeline. Every error and
// panic below the task boundary is recorded in the frontier's failed map and
// never reaches the scheduler.
package scheduler
