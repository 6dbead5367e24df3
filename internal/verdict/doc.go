// Package verdict parses the terminal tokens the language model appends to
// its free-form answers.
//
// Every parser has the grammar "reasoning text, then a suffix-tagged token"
// and an explicit fallback for responses that carry no token at all.
package verdict
