// Package fetch downloads pages for one-shot classification and extracts
// their preview metadata, the same fields the browser extension reports for
// a live tab.
package fetch
