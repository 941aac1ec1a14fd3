// Package mirror reproduces a source tree as an output tree in one synchronization pass.
//
// A pass builds into a staging directory next to the destination and promotes it only
// when the walk completes, so an interrupted pass never leaves a half-written output.
// Per-entry failures are recorded on the Report and never abort the pass.
package mirror
