// Package database manages the service's SQLite store. The database
// holds durable bookkeeping that must outlive the blueprint cache, most
// notably the audit ledger of blueprint changes. Blueprint documents
// themselves live on the filesystem, never here.
//
// Connections open with a busy timeout, foreign keys on, and optional
// WAL mode. The pool is pinned to a single connection because SQLite
// serialises writers anyway; one connection avoids lock churn. The
// database file is chmodded to 0600 after creation.
//
// Migrations are embedded in the binary (see the top-level migrations
// package) and applied with Migrate. Each migration runs in its own
// transaction and is recorded in schema_migrations. Migration files
// are additive-only: new columns must be nullable or carry defaults,
// and nothing is dropped or renamed, so a down migration can always
// run against newer data.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{
//	    Path:        cfg.Database.Path,
//	    WALMode:     cfg.Database.WALMode,
//	    BusyTimeout: cfg.Database.BusyTimeout,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package database
