// Package alarm implements a deferred-callback alarm service: a
// process-wide facility that lets many callers schedule one-shot or
// periodic callbacks to fire at a future monotonic deadline.
//
// # Architecture
//
// A [Service] owns three tightly coupled pieces:
//
//   - An ordered pending list of armed [Alarm] records, keyed by absolute
//     deadline on a boot-relative monotonic clock, re-evaluated on every
//     mutation ([pendingList]).
//   - A two-stage dispatch pipeline: a dedicated dispatcher goroutine
//     detects expirations and hands each due alarm to a caller-selected
//     [Queue], which invokes the user callback on its own worker
//     goroutine.
//   - A wake policy ([wakePolicy]) that chooses, per re-evaluation,
//     between a short-horizon in-process timer (backed by a held wake
//     lock) and a long-horizon kernel wake alarm.
//
// # Thread Safety
//
// Each [Service] has a single monitor mutex that serializes all mutations
// of its pending list and all wake-policy re-arms. Each [Alarm]
// additionally carries its own re-entrant callback lock, held for the
// duration of a callback invocation, so that [Alarm.Cancel] can wait for an in-flight
// callback to finish without deadlocking a callback that cancels itself.
//
// # Usage
//
//	svc := alarm.New()
//	defer svc.Cleanup()
//
//	a := svc.NewAlarm("ble-scan-timeout")
//	a.Set(30_000, func(data any) {
//	    fmt.Println("scan timed out")
//	}, nil)
package alarm
