package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyTask       = "task"
	KeyPlan       = "plan"
	KeyBuildID    = "build_id"
	KeyStatus     = "status"
	KeyPath       = "path"
	KeyFiles      = "files"
	KeyBytes      = "bytes"
	KeySaved      = "saved_bytes"
	KeyDurationMS = "duration_ms"
	KeyBinding    = "binding"
	KeyAddr       = "addr"
	KeyClients    = "clients"
	KeyURL        = "url"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Task(name string) slog.Attr      { return slog.String(KeyTask, name) }
func Plan(name string) slog.Attr      { return slog.String(KeyPlan, name) }
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Status(s string) slog.Attr       { return slog.String(KeyStatus, s) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Files(n int) slog.Attr           { return slog.Int(KeyFiles, n) }
func Bytes(n int64) slog.Attr         { return slog.Int64(KeyBytes, n) }
func Saved(n int64) slog.Attr         { return slog.Int64(KeySaved, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Binding(name string) slog.Attr   { return slog.String(KeyBinding, name) }
func Addr(a string) slog.Attr         { return slog.String(KeyAddr, a) }
func Clients(n int) slog.Attr         { return slog.Int(KeyClients, n) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }

// Duration reports d in milliseconds under the duration_ms key.
func Duration(d time.Duration) slog.Attr {
	return DurationMS(float64(d.Microseconds()) / 1000)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
