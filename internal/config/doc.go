// Package config loads and saves the shiori-share connection settings.
//
// # Configuration Discovery
//
// Load follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/shiori-share/config.toml
//  3. If the file doesn't exist, fall back to defaults
//  4. If the file exists but directory fields are empty, use defaults
//
// # TOML Format
//
//	server_url = "https://shiori.example.com"
//	username = "shiori"
//	trust_self_signed_certs = false
//	debug_logging = false
//	log_dir = "~/.local/state/shiori-share/logs"
//	state_dir = "~/.local/state/shiori-share"
//
// Every field is optional. The server URL is normalised on load: a missing
// scheme becomes https and trailing slashes are dropped. Tilde expansion is
// performed for both directories.
//
// The password is never stored here; see package credentials.
//
// # Error Handling
//
// Missing config files are not an error. Load fails only when the home
// directory cannot be resolved, the file cannot be read, or the TOML does not
// parse. Save writes the file with mode 0600.
package config
