// Package report renders stored classification history.
//
// Collect gathers page records and both rolling logs from the record cache
// into a History. MarkdownWriter renders it for people, JSONWriter for
// tools. The classify command reuses the same writers for its one-shot
// results.
package report
