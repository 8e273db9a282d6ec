// Package cli provides the interactive POS command-line client.
//
// It wires configuration, the local cache, the remote store, the sync engine
// and its scheduler, and an interactive REPL that keeps working offline.
// Typical flow: restore the saved shop token, start the background
// scheduler and connectivity watcher, then execute user commands.
//
// Key features:
//   - Login / Logout, switching the current shop
//   - Add and edit products, list a barcode variant in the current shop
//   - Record sales (always local, uploaded by the next sync)
//   - Search / Show / History
//   - Sync on demand, Resync (full mode on the next run)
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
