// Package metrics provides build and watch metrics for statique.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics cost nothing unless a PrometheusRecorder is wired in
// (build --watch --metrics-addr).
package metrics
