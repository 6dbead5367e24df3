// Package main provides the entry point for the swiftguard CLI.
//
// swiftguard classifies the pages a browser shows (scam, shopping, news,
// social and chatbot pages) with a local language model and screens
// messages typed into chatbots.
//
// Usage:
//
//	swiftguard serve
//	swiftguard classify https://example.com/
//	swiftguard history --json
//
// See --help for all available options.
package main

func main() {
	Execute()
}
