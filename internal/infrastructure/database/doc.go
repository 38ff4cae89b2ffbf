// Package database provides the SQLite connection behind the lifecycle
// history.
//
// This package manages:
//   - Database connection with WAL mode, so udev-triggered writers and
//     interactive readers do not block each other
//   - Forward-only schema migrations read from an fs.FS
//   - File permissions (0600, owner read/write only)
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.History.Path})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS, migrations.Dir); err != nil {
//	    return err
//	}
package database
