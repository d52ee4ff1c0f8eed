// Package store is the entity store: a durable mapping from table name to an
// ordered JSON array of rows, kept in an embedded SQLite database. There are
// no joins and no per-row updates; callers read a whole table, transform it,
// and write the whole table back. Multi-table writes go through a Batch and
// commit in a single SQLite transaction, so a writer crashing mid-operation
// can never leave an orphaned ticket behind.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"flux-parties/models"

	"github.com/pocketbase/dbx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

const (
	TableUsers    = "users"
	TableTickets  = "tickets"
	TableSecurity = "security"
	TableStatus   = "status"
	TablePayments = "payments"
	TableWaves    = "waves"
	TableExpenses = "expenses"
	TableAdmins   = "admins"
)

var knownTables = []string{
	TableUsers, TableTickets, TableSecurity, TableStatus,
	TablePayments, TableWaves, TableExpenses, TableAdmins,
}

// Batch stages whole-table replacements for one atomic commit.
type Batch map[string][]byte

type Store struct {
	db *dbx.DB

	// mu serializes logical read-modify-write cycles. Because writes replace
	// whole tables, two concurrent writers would otherwise lose each other's
	// rows; every mutating service operation runs inside WithLock.
	mu sync.Mutex
}

// Open opens (or creates) the store at path and seeds a fresh store exactly
// once: every known table to [], Waves to the preset tiers, Admins to the two
// staff accounts.
func Open(path string) (*Store, error) {
	db, err := dbx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.seed(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// WithLock runs fn under the global operation mutex. Every write path that
// reads a table and writes it back must go through here.
func (s *Store) WithLock(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func (s *Store) migrate() error {
	_, err := s.db.NewQuery(
		`CREATE TABLE IF NOT EXISTS tables (name TEXT PRIMARY KEY, rows TEXT NOT NULL)`,
	).Execute()
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

func (s *Store) seed() error {
	return s.db.Transactional(func(tx *dbx.Tx) error {
		for _, name := range knownTables {
			var existing string
			err := tx.NewQuery(`SELECT rows FROM tables WHERE name={:name}`).
				Bind(dbx.Params{"name": name}).Row(&existing)
			if err == nil {
				continue
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("store: seed check %s: %w", name, err)
			}

			rows, err := seedRows(name)
			if err != nil {
				return err
			}
			_, err = tx.NewQuery(`INSERT INTO tables (name, rows) VALUES ({:name}, {:rows})`).
				Bind(dbx.Params{"name": name, "rows": string(rows)}).Execute()
			if err != nil {
				return fmt.Errorf("store: seed %s: %w", name, err)
			}
		}
		return nil
	})
}

func seedRows(name string) ([]byte, error) {
	switch name {
	case TableWaves:
		return json.Marshal(models.DefaultWaves())
	case TableAdmins:
		admins := make([]models.Admin, 0, 2)
		for _, seed := range models.DefaultAdmins() {
			hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
			if err != nil {
				return nil, fmt.Errorf("store: hash seed credential: %w", err)
			}
			admins = append(admins, models.Admin{
				ID:           seed.ID,
				Username:     seed.Username,
				PasswordHash: string(hash),
				Role:         seed.Role,
			})
		}
		return json.Marshal(admins)
	default:
		return []byte("[]"), nil
	}
}

// ReadTable returns the raw JSON rows of one table.
func (s *Store) ReadTable(name string) ([]byte, error) {
	var rows string
	err := s.db.NewQuery(`SELECT rows FROM tables WHERE name={:name}`).
		Bind(dbx.Params{"name": name}).Row(&rows)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: unknown table %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", name, err)
	}
	return []byte(rows), nil
}

// ReadTables reads several tables inside one transaction so the caller sees a
// consistent snapshot: a ticket row is never observed without its siblings.
func (s *Store) ReadTables(names ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(names))
	err := s.db.Transactional(func(tx *dbx.Tx) error {
		for _, name := range names {
			var rows string
			err := tx.NewQuery(`SELECT rows FROM tables WHERE name={:name}`).
				Bind(dbx.Params{"name": name}).Row(&rows)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("store: unknown table %q", name)
			}
			if err != nil {
				return fmt.Errorf("store: read %s: %w", name, err)
			}
			out[name] = []byte(rows)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// WriteTables replaces every staged table in a single transaction: all of the
// batch lands or none of it does.
func (s *Store) WriteTables(batch Batch) error {
	if len(batch) == 0 {
		return nil
	}
	return s.db.Transactional(func(tx *dbx.Tx) error {
		for name, rows := range batch {
			if !isKnownTable(name) {
				return fmt.Errorf("store: unknown table %q", name)
			}
			_, err := tx.NewQuery(`UPDATE tables SET rows={:rows} WHERE name={:name}`).
				Bind(dbx.Params{"name": name, "rows": string(rows)}).Execute()
			if err != nil {
				return fmt.Errorf("store: write %s: %w", name, err)
			}
		}
		return nil
	})
}

// WriteTable replaces a single table wholesale.
func (s *Store) WriteTable(name string, rows []byte) error {
	return s.WriteTables(Batch{name: rows})
}

func isKnownTable(name string) bool {
	for _, known := range knownTables {
		if known == name {
			return true
		}
	}
	return false
}
