// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It
// translates CLI flags into the application's internal configuration.
//
// The flag syntax follows the driver's contract rather than the stdlib
// conventions: key=value options (-root=src), one-word numeric options
// (-j8), repeatable prefix options (+Iext, -I/opt/include), space-separated
// values (-o a.out, -FC "-O2"), and bare flags (-c, -###).
package cli
