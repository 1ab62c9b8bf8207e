// Package database opens the SQLite file behind the officesync journal and
// applies its schema migrations.
//
// The journal is optional; nothing in the synchroniser's stores is ever
// read back from it. When enabled, the database is opened with WAL mode and
// a busy timeout, and a single connection is kept because SQLite allows one
// writer at a time.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// # Migrations
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql. Each migration runs in its own transaction
// and is recorded in schema_migrations, so Migrate is safe to call on every
// start.
package database
