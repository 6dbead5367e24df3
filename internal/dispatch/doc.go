// Package dispatch routes request/response actions from the popup, the
// settings page and the extension shell to the classification core.
// Every action gets exactly one response value.
package dispatch
