// Package tui provides the terminal progress view of `specctl run --tui`.
//
// The view is a Bubble Tea program fed by a Notifier: the harness reports
// every test outcome to the Notifier, which forwards them as messages over a
// buffered channel that the model drains one message at a time.
//
//   - Model: counters, the test currently running, recent results
//   - Notifier: notify.Notifier adapter turning notifications into messages
//   - Run: starts the program next to the suite run and returns its result
package tui
