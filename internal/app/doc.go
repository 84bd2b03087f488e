// Package app wires configuration, credentials, caches, logging and the
// Shiori client together for the shiori-share commands.
//
// # Overview
//
// Open is the composition root. It:
//
//  1. Loads connection settings from ~/.config/shiori-share/config.toml
//  2. Loads form preferences from ~/.config/shiori-share/prefs.toml
//  3. Opens today's log file and prunes files older than the retention window
//  4. Builds the credential store, session cache and recent tags cache
//  5. Creates the Shiori client on top of them
//
// # Saving
//
// Save is the non-interactive path used by `save -batch`. Share starts the
// popular tags refresh in the background (see StartTagRefresh) and runs the
// share form; the refresh never delays a save.
//
// # Settings
//
// Configure writes the config file, drops the cached session and, when a
// password is supplied, verifies it with a login before storing it.
package app
