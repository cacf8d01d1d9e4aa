// Package coordinator governs how edit events become retrieval calls.
//
// The coordinator is the client-side half of the engine: the editor feeds
// it every edit, and it guarantees that at most one retrieval request is in
// flight, that rapid keystrokes coalesce into a single request representing
// the latest state, and that displayed results always converge to the most
// recent edit.
//
// # State machine
//
// Three slots: a pending query (only the latest edit survives), an
// in-flight request, and the displayed results. An edit updates the
// pending slot and starts the debounce timer; the timer firing dispatches
// the pending query unless a request is already in flight. An edit on a
// different note cancels the in-flight request immediately; on the same
// note the request finishes and the pending query dispatches right after,
// without another debounce.
//
// Cancellation is not an error: a cancelled request leaves displayed
// results untouched and surfaces no message. Other failures clear the
// results and set a message, and the next query proceeds normally.
package coordinator
