// Package config handles loading and validating linux-enable-ir-emitter configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// The tool is usually run by udev without any configuration file, so
// LoadOrDefault treats a missing file at the default location as "use the
// packaged defaults".
//
// Usage:
//
//	path, explicit := config.ResolvePath(flagValue)
//	cfg, err := config.LoadOrDefault(path, explicit)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Paths.DriverDir)
package config
