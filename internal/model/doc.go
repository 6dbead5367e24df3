// Package model defines the data shared by the classification core.
//
// This package contains the following main types:
//   - PageRecord: the persisted verdict and status of one PageKey
//   - Availability: the language-model capability state
//   - NewsResult and Review: the fact-check payload
//   - Decision: the chatbot interceptor outcome
//
// The types serialize to JSON with the field names the extension popup reads.
package model
