// Package engine orchestrates page classification.
//
// A page moves from no record to processing to complete. Navigation events
// are debounced per tab, snapshots are captured ahead of the debounced run,
// and a page that is not ready yet is cleared and retried after a delay.
// Only the active tab triggers model analysis; other tabs replay cached
// verdicts.
//
// All mutable orchestration state (timers, snapshots, in-flight retries) is
// owned by an Engine value, so independent engines can run side by side in
// tests.
package engine
