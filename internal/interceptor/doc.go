// Package interceptor screens messages typed into chatbot pages before
// they are sent.
//
// Two analyzers back the decision. The leak-prevention analyzer blocks a
// message that contains real credentials or personal data, and the
// distress analyzer logs and reports worrying messages from a minor
// without ever blocking them. A Session holds the per-tab state of an
// armed page: the monitoring mode it was armed with and the pending-block
// memory that lets the user send a blocked message on a second attempt.
package interceptor
