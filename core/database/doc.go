// Package database handles database connections and schema inspection.
//
// It provides a wrapper around GORM to configure connections for the pool's
// db backend. Two drivers are supported: mysql for shared setups and sqlite
// for a single-machine pool cache.
//
// # Connect
//
// The generic Connect function establishes a connection to the database.
// It knows nothing about the pool schema; migration lives with the store.
//
// # Schema Inspection
//
// GetTableColumns retrieves column definitions for a table in a
// dialect-aware way (SHOW COLUMNS on MySQL, PRAGMA table_info on SQLite).
// The pool store uses it to verify its migrated schema before accepting a
// connection.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	columns, err := database.GetTableColumns(db, "pool_records")
package database
