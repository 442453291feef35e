// Package database provides SQLite connectivity and schema migrations for
// Todo Core.
//
// This package manages:
//   - Opening the database with WAL mode and a busy timeout
//   - Applying embedded, versioned migrations
//   - A transaction helper for multi-statement writes
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Every query in the service uses ? placeholders; nothing is built by string
// concatenation from request data.
package database
