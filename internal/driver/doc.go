// Package driver is the build coordinator. It discovers sources, extracts
// their imports through parse-only front-end runs, assembles and solves the
// dependency graph, schedules per-node compiles over the task pool with
// content-hash staleness checks, and finishes with a link or with the
// exported library headers.
//
// All child invocations are black boxes: the driver knows their argv
// contract and the files they leave behind, nothing else. Artifact meta
// records are the only cross-invocation communication channel.
package driver
