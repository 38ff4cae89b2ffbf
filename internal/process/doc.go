// Package process runs the external programs the tool depends on:
// udevadm, systemctl, rc-update, rc-service and the driver generator.
//
// Features:
//   - A Runner interface so callers can be tested with a gomock MockRunner
//   - Non-zero exits reported as Result.ExitCode, not as errors
//   - Output capture logged at debug level
//   - Context cancellation signalling the child's whole process group
//   - Interactive mode that hands the terminal to the child
//
// Example usage:
//
//	runner := process.NewExecRunner()
//	runner.SetLogger(logger)
//
//	res, err := runner.Run(ctx, process.Command{
//	    Name:    "udevadm-reload",
//	    Binary:  "udevadm",
//	    Args:    []string{"control", "--reload-rules"},
//	    Timeout: 30 * time.Second,
//	})
package process
