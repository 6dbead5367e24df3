// Package database provides SQLite-based storage for swiftguard.
//
// The KV type stores JSON documents under string keys: page records, the
// rolling diagnostic logs, model availability and user settings all live in
// one table. modernc.org/sqlite keeps the binary CGO-free.
package database
