// Package llm manages the language model capability used by every pipeline.
//
// A Runtime is the raw capability: it reports an availability state and
// creates prompt sessions. The Manager sits in front of a Runtime, tracks
// and persists its availability, starts the one-time model download when a
// session is first requested, and notifies subscribers of every state
// change. Router chooses between a cloud and an on-device runtime for the
// scam pipeline and falls back to the device silently.
//
// Ollama is the bundled Runtime. It talks to an Ollama server over HTTP.
package llm
