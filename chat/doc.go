// Package chat models a multi-turn conversation with an LLM backend and the
// submission lifecycle of each turn.
//
// A Conversation holds a system message, an ordered list of completed
// Exchanges, and at most one pending prompt. Conversation.Run submits the
// pending prompt through an Adapter, retrying recoverable failures up to a
// bounded number of attempts, and folds a successful response back into the
// conversation as a new Exchange. The returned Run carries full diagnostics
// for the attempt cycle: timing, attempt count, status, and error history.
package chat
