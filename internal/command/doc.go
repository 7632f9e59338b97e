// Package command assembles and executes the child-process invocations of
// the build: one argv builder per phase (preamble, parse-imports,
// build-decl, build-obj, link) over a shared chaining Command type.
//
// Quoting follows the front-end contract: quote characters around values
// are preserved in the assembled argv and stripped only when the argv is
// handed to the exec primitive. Extra-args strings from the command line
// are split by a small state machine where spaces separate tokens, single
// and double quotes group, and a backslash escapes the next character.
//
// Execution goes through the Runner interface; the coordinator runs a real
// os/exec runner, tests substitute a recording stub. The child is a black
// box: a non-zero exit is a failure carrying the child's stderr, stderr
// with a zero exit is a warning.
package command
