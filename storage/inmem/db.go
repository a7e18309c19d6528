// Package inmemdb keeps the development backend's collections in memory.
package inmemdb

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("not found")

type (
	// Row is one JSON object of a collection.
	Row map[string]interface{}

	// Table is a collection of rows keyed by an auto-incremented "id".
	Table struct {
		mu   sync.RWMutex
		seq  int
		rows map[int]Row
	}

	// File is a stored binary attachment.
	File struct {
		Name        string
		ContentType string
		Data        []byte
	}

	DB struct {
		mu     sync.Mutex
		tables map[string]*Table
		user   *userTable

		filesMu sync.RWMutex
		files   map[string]File
	}
)

func Open() *DB {
	return &DB{
		tables: make(map[string]*Table),
		user:   &userTable{table: make(map[int]*userRow)},
		files:  make(map[string]File),
	}
}

// Table returns the named collection, creating it on first use.
func (db *DB) Table(name string) *Table {
	db.mu.Lock()
	defer db.mu.Unlock()
	t, ok := db.tables[name]
	if !ok {
		t = &Table{rows: make(map[int]Row)}
		db.tables[name] = t
	}
	return t
}

func (db *DB) PutFile(key string, f File) {
	db.filesMu.Lock()
	defer db.filesMu.Unlock()
	db.files[key] = f
}

func (db *DB) GetFile(key string) (File, error) {
	db.filesMu.RLock()
	defer db.filesMu.RUnlock()
	f, ok := db.files[key]
	if !ok {
		return File{}, ErrNotFound
	}
	return f, nil
}

func (db *DB) DeleteFile(key string) error {
	db.filesMu.Lock()
	defer db.filesMu.Unlock()
	if _, ok := db.files[key]; !ok {
		return ErrNotFound
	}
	delete(db.files, key)
	return nil
}

func (r Row) copy() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Insert stores a copy of r under a new id and returns it.
func (t *Table) Insert(r Row) Row {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	row := r.copy()
	row["id"] = t.seq
	t.rows[t.seq] = row
	return row.copy()
}

func (t *Table) Get(id int) (Row, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return row.copy(), nil
}

// Query returns the rows accepted by match (all when nil), ordered by id.
func (t *Table) Query(match func(Row) bool) []Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]int, 0, len(t.rows))
	for id, row := range t.rows {
		if match == nil || match(row) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	out := make([]Row, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.rows[id].copy())
	}
	return out
}

// Update merges patch into the row; the id cannot change.
func (t *Table) Update(id int, patch Row) (Row, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	for k, v := range patch {
		if k != "id" {
			row[k] = v
		}
	}
	return row.copy(), nil
}

// UpdateAll merges patch into every row and returns how many changed.
func (t *Table) UpdateAll(patch Row) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, row := range t.rows {
		for k, v := range patch {
			if k != "id" {
				row[k] = v
			}
		}
	}
	return len(t.rows)
}

func (t *Table) Delete(id int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[id]; !ok {
		return ErrNotFound
	}
	delete(t.rows, id)
	return nil
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}
