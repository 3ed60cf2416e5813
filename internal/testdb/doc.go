// Package testdb provides helpers for tests that run against a real
// Postgres database.
//
// Tests call Open to get a migrated connection and WithTx to run each case
// in a transaction that is always rolled back:
//
//	db := testdb.Open(t)
//	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	    states := postgres.NewPostgresCardStateStore(tx, nil)
//	    // ...
//	})
//
// Open skips the test when no database URL is configured, so integration
// tests stay green on machines without Postgres.
package testdb
