package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"

	_ "modernc.org/sqlite"
)

// Pool pairs a single-connection writer with a read pool over one SQLite file.
type Pool struct {
	path    string
	readDB  *sql.DB
	writeDB *sql.DB
}

// sqliteDBString constructs a connection string for SQLite with recommended PRAGMA settings
func sqliteDBString(file string, readonly bool) string {
	connectionParams := make(url.Values)
	connectionParams.Add("_pragma", "journal_mode(WAL)")
	connectionParams.Add("_pragma", "busy_timeout(10000)")
	connectionParams.Add("_pragma", "synchronous(NORMAL)")
	connectionParams.Add("_pragma", "foreign_keys(1)")
	connectionParams.Add("_pragma", "temp_store(memory)")

	if readonly {
		connectionParams.Add("mode", "ro")
	} else {
		connectionParams.Add("_txlock", "immediate")
		connectionParams.Add("mode", "rwc")
	}

	return "file:" + file + "?" + connectionParams.Encode()
}

// openSQLiteDatabase opens a SQLite database with optimized settings
func openSQLiteDatabase(file string, readonly bool) (*sql.DB, error) {
	db, err := sql.Open("sqlite", sqliteDBString(file, readonly))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if readonly {
		// Read pool: allow multiple concurrent connections
		maxConns := max(4, runtime.NumCPU())
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns)
	} else {
		// Write pool: single connection to serialize writes
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	return db, nil
}

// Open creates the database directory if needed and opens the write and read
// pools. The writer is pinged first so the file exists before readers attach.
func Open(ctx context.Context, dbPath string) (*Pool, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	writeDB, err := openSQLiteDatabase(dbPath, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open write database: %w", err)
	}
	if err := writeDB.PingContext(ctx); err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("failed to open write database: %w", err)
	}

	readDB, err := openSQLiteDatabase(dbPath, true)
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("failed to open read database: %w", err)
	}

	return &Pool{path: dbPath, readDB: readDB, writeDB: writeDB}, nil
}

// Path returns the database file location.
func (p *Pool) Path() string { return p.path }

// Read returns the read-only connection pool
func (p *Pool) Read() *sql.DB { return p.readDB }

// Write returns the single-connection write pool
func (p *Pool) Write() *sql.DB { return p.writeDB }

// WithTx executes a function within an immediate transaction
func (p *Pool) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := p.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Close closes both database connection pools
func (p *Pool) Close() error {
	if p == nil {
		return nil
	}

	var errs error
	if p.readDB != nil {
		if err := p.readDB.Close(); err != nil {
			errs = errors.Join(errs, fmt.Errorf("failed to close read database: %w", err))
		}
	}
	if p.writeDB != nil {
		if err := p.writeDB.Close(); err != nil {
			errs = errors.Join(errs, fmt.Errorf("failed to close write database: %w", err))
		}
	}
	return errs
}
