// Package api contains the HTTP handlers for the export service: task
// submission, status and log polling, and the health probe. Handlers decode
// and sanity-check the wire format, then delegate all domain validation and
// scheduling to the task package.
package api
