// Package domain contains the core types for export requests: the date
// range, the location selector, and the resolved delivery target. These
// types carry no behavior beyond construction-time validation; all
// orchestration lives in the task package.
package domain
