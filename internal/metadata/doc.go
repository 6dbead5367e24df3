// Package metadata extracts social-preview metadata from HTML pages.
//
// The extension shell normally runs the equivalent extraction inside the
// page and sends the result; this package serves the CLI, which fetches
// pages itself, and tests.
package metadata
