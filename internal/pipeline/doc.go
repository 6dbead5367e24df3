// Package pipeline runs the content pipelines that turn a page snapshot into
// a terminal verdict: the page-type prepass, scam detection, e-commerce
// checks, news fact-checking and the photo-post scan.
//
// Each pipeline is a Handler registered on a Runner. Handlers capture their
// own failures in the record they write, so a Handler returns an error only
// when it could not write a record at all.
package pipeline
