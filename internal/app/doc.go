// Package app wires the coordinator together: it resolves the effective
// configuration from the command line and the optional project file,
// constructs the application logger, and runs the driver with proper exit
// codes.
package app
