// Package watch turns filesystem notifications under a source tree into serialized,
// coalesced synchronization passes.
//
// A producer translates fsnotify events into Debouncer notifications; the Debouncer
// sets a single-slot Signal once a burst settles; a consumer blocks on the Signal and
// runs one pass at a time. An optional periodic rescan sets the same Signal.
package watch
