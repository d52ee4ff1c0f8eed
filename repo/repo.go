// Package repo provides thin typed accessors over the entity store. A
// Table[T] knows how to decode and re-encode one table; it has no knowledge
// of any other table. Cross-table consistency is the services' job.
package repo

import (
	"encoding/json"
	"fmt"

	"flux-parties/models"
	"flux-parties/store"
)

type Table[T any] struct {
	store *store.Store
	name  string
}

func NewTable[T any](s *store.Store, name string) Table[T] {
	return Table[T]{store: s, name: name}
}

func (t Table[T]) Name() string { return t.name }

func (t Table[T]) List() ([]T, error) {
	raw, err := t.store.ReadTable(t.name)
	if err != nil {
		return nil, err
	}
	return decode[T](t.name, raw)
}

// Stage marshals rows into a batch for a later atomic multi-table commit.
func (t Table[T]) Stage(batch store.Batch, rows []T) error {
	encoded, err := encode(t.name, rows)
	if err != nil {
		return err
	}
	batch[t.name] = encoded
	return nil
}

// Save replaces the table wholesale. Callers must hold the store lock for
// any read-modify-write cycle.
func (t Table[T]) Save(rows []T) error {
	encoded, err := encode(t.name, rows)
	if err != nil {
		return err
	}
	return t.store.WriteTable(t.name, encoded)
}

func (t Table[T]) Append(row T) error {
	rows, err := t.List()
	if err != nil {
		return err
	}
	return t.Save(append(rows, row))
}

// Update rewrites every row matching pred through transform and reports how
// many rows matched.
func (t Table[T]) Update(pred func(T) bool, transform func(T) T) (int, error) {
	rows, err := t.List()
	if err != nil {
		return 0, err
	}
	matched := 0
	for i, row := range rows {
		if pred(row) {
			rows[i] = transform(row)
			matched++
		}
	}
	if matched == 0 {
		return 0, nil
	}
	return matched, t.Save(rows)
}

// Remove drops every row matching pred and reports how many were dropped.
func (t Table[T]) Remove(pred func(T) bool) (int, error) {
	rows, err := t.List()
	if err != nil {
		return 0, err
	}
	kept := rows[:0]
	for _, row := range rows {
		if !pred(row) {
			kept = append(kept, row)
		}
	}
	removed := len(rows) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	return removed, t.Save(kept)
}

func decode[T any](name string, raw []byte) ([]T, error) {
	var rows []T
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("repo: decode %s: %w", name, err)
	}
	return rows, nil
}

func encode[T any](name string, rows []T) ([]byte, error) {
	if rows == nil {
		rows = []T{}
	}
	encoded, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("repo: encode %s: %w", name, err)
	}
	return encoded, nil
}

// DecodeRows decodes a table previously read through store.ReadTables.
func DecodeRows[T any](name string, snapshot map[string][]byte) ([]T, error) {
	raw, ok := snapshot[name]
	if !ok {
		return nil, fmt.Errorf("repo: table %q missing from snapshot", name)
	}
	return decode[T](name, raw)
}

// Repo bundles one typed accessor per entity.
type Repo struct {
	Store *store.Store

	Users    Table[models.User]
	Waves    Table[models.Wave]
	Tickets  Table[models.Ticket]
	Security Table[models.TicketSecurity]
	Status   Table[models.TicketStatus]
	Payments Table[models.Payment]
	Expenses Table[models.Expense]
	Admins   Table[models.Admin]
}

func New(s *store.Store) *Repo {
	return &Repo{
		Store:    s,
		Users:    NewTable[models.User](s, store.TableUsers),
		Waves:    NewTable[models.Wave](s, store.TableWaves),
		Tickets:  NewTable[models.Ticket](s, store.TableTickets),
		Security: NewTable[models.TicketSecurity](s, store.TableSecurity),
		Status:   NewTable[models.TicketStatus](s, store.TableStatus),
		Payments: NewTable[models.Payment](s, store.TablePayments),
		Expenses: NewTable[models.Expense](s, store.TableExpenses),
		Admins:   NewTable[models.Admin](s, store.TableAdmins),
	}
}
