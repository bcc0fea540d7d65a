// Package signer provides the reference Signed Object Builder
// implementation: ECDSA P-256 signing keys, random serial allocation
// recorded in a local SQLite ledger, and a canonical JSON stand-in for
// the RPKI CMS-wrapped signed object. Adapted from an internal database-driver
// lineage's internal/db connection-management code, narrowed to the
// single SQLite driver this package actually needs (the PostgreSQL
// branch served an application-layer content store that has no
// counterpart here).
package signer

import (
	"database/sql"
	"fmt"
	"math/big"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jrschumacher/rpkica/internal/logger"
)

// Ledger records every serial number the reference Signer has
// allocated, purely for operator debugging. It is not the canonical
// CA event log and is never consulted to decide whether a serial may
// be reused; random allocation already makes collisions negligible.
type Ledger struct {
	db *sql.DB
}

// OpenLedger opens (creating if absent) a SQLite-backed ledger at path.
func OpenLedger(path string) (*Ledger, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_busy_timeout=10000&_journal_mode=WAL&_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("signer: opening serial ledger: %w", err)
	}
	// The ledger is written from a single signer goroutine at a time;
	// SQLite does not benefit from pooling here.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("signer: pinging serial ledger: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS allocated_serials (
			key_id       TEXT NOT NULL,
			serial       TEXT NOT NULL,
			customer_asn INTEGER NOT NULL,
			allocated_at INTEGER NOT NULL
		)
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("signer: initializing serial ledger schema: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Close releases the underlying connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record appends an allocation entry. Failures are logged and
// swallowed: the ledger is an observability aid, not an authority, and
// must never block signing.
func (l *Ledger) Record(keyID string, serial *big.Int, customer uint32, allocatedAt time.Time) {
	_, err := l.db.Exec(
		`INSERT INTO allocated_serials (key_id, serial, customer_asn, allocated_at) VALUES (?, ?, ?, ?)`,
		keyID, serial.String(), customer, allocatedAt.Unix(),
	)
	if err != nil {
		logger.Warn("signer: failed to record serial allocation", "key_id", keyID, "error", err)
	}
}

// Count returns the number of allocations recorded for keyID, mostly
// useful from tests and operator tooling.
func (l *Ledger) Count(keyID string) (int, error) {
	var n int
	err := l.db.QueryRow(`SELECT COUNT(*) FROM allocated_serials WHERE key_id = ?`, keyID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("signer: counting serial ledger entries: %w", err)
	}
	return n, nil
}
