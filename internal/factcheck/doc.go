// Package factcheck looks up published fact-check reviews for a claim.
//
// Client queries a fact-check proxy with a shared extension key. Proxy is
// that proxy: it checks the key and forwards the query to the Google Fact
// Check Tools claim search with the server-side API key, so the upstream key
// never reaches the browser.
package factcheck
