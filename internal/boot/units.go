package boot

import "fmt"

// renderSystemdUnit returns the oneshot unit that re-applies drivers at
// boot and after resuming from sleep, when udev does not replay events.
func renderSystemdUnit(executable string) []byte {
	return []byte(fmt.Sprintf(`[Unit]
Description=Enable the infrared emitter
After=multi-user.target suspend.target hybrid-sleep.target hibernate.target suspend-then-hibernate.target

[Service]
Type=oneshot
ExecStart=%s run

[Install]
WantedBy=multi-user.target suspend.target hybrid-sleep.target hibernate.target suspend-then-hibernate.target
`, executable))
}

// renderOpenRCScript returns the init script run in the default runlevel.
func renderOpenRCScript(executable string) []byte {
	return []byte(fmt.Sprintf(`#!/sbin/openrc-run

description="Enable the infrared emitter"
command="%s"
command_args="run"

depend() {
	after udev
}
`, executable))
}
