// Package commands defines the warden CLI.
//
// Commands
//
//   - serve    Run the websocket integrity server
//   - derive   Print the directional keys for a session secret
//   - vector   Print the challenge transform and check digests for a seed
//   - modules  List, identify and pack catalog modules
//   - seal     Protect a module manifest with a passphrase
//   - probe    Connect to a server as a reference client
//
// # Implementation
//
// The root command builds the zap logger before any subcommand runs; serve
// hands it to app.Run together with a Config assembled from flags.
package commands
