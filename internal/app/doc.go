// Package app wires the warden server for the CLI.
//
// It validates Config, builds the logger, module catalog, session table,
// metrics and websocket handler, and exposes them via the Wire struct. Run
// serves them over HTTP until its context is cancelled.
package app
