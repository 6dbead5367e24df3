// Package cache implements the page-record store used by the classification
// core on top of a persistent key/value backend.
//
// Besides records it keeps the two rolling diagnostic logs, the last
// leak-prevention block, the persisted model availability and the user
// settings the popup edits (monitoring mode, inference mode, family
// enrollment).
//
// Every read-modify-write of a record runs under a per-key lock, which makes
// the at-most-one-processing-episode rule hold on a multi-threaded runtime.
package cache
