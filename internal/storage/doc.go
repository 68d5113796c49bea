// Package storage provides SQLite-based persistence for analysis runs.
//
// Every pipeline execution is a run, identified by a ULID so runs sort by
// start time. Run-scoped tables hold the run's output:
//   - fragments: tagged solicitation fragments with their scores and labels
//   - sections: extracted sections with a coverage flag
//   - records: canonical past-performance records
//   - themes: merged keyword themes
//   - compliance_items: mandatory requirements
//
// Save* calls replace the run's rows for that table, so a run can be
// re-persisted. Deleting a run cascades to its rows.
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("proposal.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	run := &storage.Run{Opportunity: "acme-rfp", RootPath: "/data/acme-rfp"}
//	tx, _ := db.BeginTx(ctx)
//	defer tx.Rollback()
//	_ = tx.CreateRun(ctx, run)
//	_ = tx.SaveFragments(ctx, run.ID, frags)
//	_ = tx.Commit()
//
//	gaps, err := db.ListGaps(ctx, run.ID)
//
// # Build Tags
//
// The default build uses the pure Go modernc.org/sqlite driver. Building with
// the sqlite_cgo tag switches to github.com/mattn/go-sqlite3:
//
//	CGO_ENABLED=1 go build -tags sqlite_cgo ./...
//
// Schema versions are tracked with semantic versions and applied in order
// by ApplyMigrations when the database is opened.
package storage
