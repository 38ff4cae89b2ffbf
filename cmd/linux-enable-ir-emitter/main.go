// linux-enable-ir-emitter - infrared emitter support for Linux cameras
//
// Finds the activation sequence of an infrared camera's emitters, stores it
// per device, applies it on demand and registers it with udev and the init
// system so it is re-applied at boot and on hot-plug.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/ir-emitter/internal/cli"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=6.1.0"
var version = "dev"

func main() {
	// udev may kill the run on device removal; SIGTERM cancels in-flight commands.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	code := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr, cli.DefaultDeps(version))
	cancel()
	os.Exit(code)
}
