// Package host provides the engine.Host implementations.
//
// Bridge mirrors the tabs of a remote browser. The extension shell pushes
// tab state and snapshots to it and receives host commands over the
// notification stream. Static serves a fixed set of pages for one-shot
// classification from the command line.
package host
