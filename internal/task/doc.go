// Package task implements the asynchronous export execution core: the
// in-memory task record store, the per-task log sink, the executor that
// drives one export from fetch through delivery, and the dispatcher that
// accepts submissions and schedules executor runs.
package task
