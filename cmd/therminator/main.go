// Command therminator runs the relay controller and inspects its event logs.
//
// Usage:
//
//	therminator serve [--config therminator.yaml] [--interactive]
//	therminator log view [flags] <file.tlog>
//	therminator log stats <file.tlog>
//	therminator version
//
// The controller serves the web front end and the relay API over plain
// HTTP, holds the relay rail behind a timed interlock and feeds a
// watchdog while its supervisor keeps taking turns.
package main

func main() {
	Execute()
}
