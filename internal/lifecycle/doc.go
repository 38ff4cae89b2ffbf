// Package lifecycle sequences the driver lifecycle of an infrared camera:
// search (configure), replay (run, test), removal (delete) and boot
// registration (boot enable/disable/status).
//
// Mutating operations hold the driver store's advisory lock for their
// whole duration, so two concurrent invocations cannot both regenerate
// the udev rule file. Each operation except test and boot status is
// reported to a Recorder (normally a telemetry.Fanout).
//
// Usage:
//
//	svc, err := lifecycle.NewService(lifecycle.Deps{...})
//	out := svc.Configure(ctx, lifecycle.ConfigureRequest{Device: dev, Emitters: 1, NegAnswerLimit: 40})
//	os.Exit(out.ExitCode)
package lifecycle
