// Package prompt renders the instruction templates sent to the language model.
//
// The templates are embedded text files. Each one ends by asking the model
// for a terminal machine-readable token (for example Scam_291aec) that the
// verdict package parses back out of the response.
package prompt
