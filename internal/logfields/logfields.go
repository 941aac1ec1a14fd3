package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyPassID      = "pass_id"
	KeyPath        = "path"
	KeySource      = "source"
	KeyDestination = "destination"
	KeyAction      = "action"
	KeyOp          = "op"
	KeyDurationMS  = "duration_ms"
	KeyRevision    = "revision"
	KeyTrigger     = "trigger"
	KeyCount       = "count"
	KeyError       = "error"
)

func PassID(id string) slog.Attr        { return slog.String(KeyPassID, id) }
func Path(p string) slog.Attr           { return slog.String(KeyPath, p) }
func Source(p string) slog.Attr         { return slog.String(KeySource, p) }
func Destination(p string) slog.Attr    { return slog.String(KeyDestination, p) }
func Action(a string) slog.Attr         { return slog.String(KeyAction, a) }
func Op(op string) slog.Attr            { return slog.String(KeyOp, op) }
func Revision(r string) slog.Attr       { return slog.String(KeyRevision, r) }
func Trigger(t string) slog.Attr        { return slog.String(KeyTrigger, t) }
func Count(n int) slog.Attr             { return slog.Int(KeyCount, n) }
func Duration(d time.Duration) slog.Attr { return slog.Int64(KeyDurationMS, d.Milliseconds()) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
