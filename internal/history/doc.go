// Package history keeps an optional SQLite journal of automation
// transitions and dispatched commands.
//
// The journal is write-mostly and opt-in. None of the in-memory stores read
// from it; it exists so operators can see what the automation engine did
// and which commands left the process, after the fact.
//
// Usage:
//
//	db, _ := database.Open(ctx, database.Config{Path: "./data/officesync.db"})
//	_ = db.Migrate(ctx, migrations.FS)
//	j := history.NewJournal(db.DB, logger)
//	ctrl.AddReporter(j)
//	recent, _ := j.RecentTransitions(ctx, 20)
package history
