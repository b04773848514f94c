// Package repository contains data access logic for the movie catalog.
// Genres, stars, directors and certifications are simple (id, name) lookup
// tables that share identical CRUD behavior; NameRepo implements that shape
// once and is instantiated per table.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// NameRecord is a row of one of the lookup tables.
type NameRecord struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// NameRepo manages one (id, name) lookup table.  refQuery counts rows in
// other tables that reference a record; a non-zero count blocks deletion.
type NameRepo struct {
	db       *sql.DB
	table    string
	refQuery string
}

func NewGenreRepo(db *sql.DB) *NameRepo {
	return &NameRepo{db: db, table: "genres",
		refQuery: "SELECT COUNT(*) FROM movie_genres WHERE genre_id = ?"}
}

func NewStarRepo(db *sql.DB) *NameRepo {
	return &NameRepo{db: db, table: "stars",
		refQuery: "SELECT COUNT(*) FROM movie_stars WHERE star_id = ?"}
}

func NewDirectorRepo(db *sql.DB) *NameRepo {
	return &NameRepo{db: db, table: "directors",
		refQuery: "SELECT COUNT(*) FROM movie_directors WHERE director_id = ?"}
}

func NewCertificationRepo(db *sql.DB) *NameRepo {
	return &NameRepo{db: db, table: "certifications",
		refQuery: "SELECT COUNT(*) FROM movies WHERE certification_id = ?"}
}

// List returns all records ordered by name.
func (r *NameRepo) List(ctx context.Context) ([]NameRecord, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name FROM "+r.table+" ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []NameRecord{}
	for rows.Next() {
		var rec NameRecord
		if err := rows.Scan(&rec.ID, &rec.Name); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetByID returns a single record or ErrNotFound.
func (r *NameRepo) GetByID(ctx context.Context, id uint64) (NameRecord, error) {
	var rec NameRecord
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name FROM "+r.table+" WHERE id = ?", id).Scan(&rec.ID, &rec.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, ErrNotFound
	}
	return rec, err
}

// Create inserts a record and returns it.  Duplicate names map to
// ErrDuplicate via the unique key.
func (r *NameRepo) Create(ctx context.Context, name string) (NameRecord, error) {
	name = strings.TrimSpace(name)
	res, err := r.db.ExecContext(ctx, "INSERT INTO "+r.table+" (name) VALUES (?)", name)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return NameRecord{}, ErrDuplicate
		}
		return NameRecord{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return NameRecord{}, err
	}
	return NameRecord{ID: uint64(id), Name: name}, nil
}

// Update renames a record.  ErrNotFound when the id does not exist,
// ErrDuplicate when the new name is taken.
func (r *NameRepo) Update(ctx context.Context, id uint64, name string) (NameRecord, error) {
	name = strings.TrimSpace(name)
	res, err := r.db.ExecContext(ctx, "UPDATE "+r.table+" SET name = ? WHERE id = ?", name, id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return NameRecord{}, ErrDuplicate
		}
		return NameRecord{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either missing or unchanged; disambiguate with a lookup.
		return r.GetByID(ctx, id)
	}
	return NameRecord{ID: id, Name: name}, nil
}

// Delete removes a record unless movies still reference it, in which case
// ErrConflict is returned and nothing is deleted.
func (r *NameRepo) Delete(ctx context.Context, id uint64) error {
	var refs int
	if err := r.db.QueryRowContext(ctx, r.refQuery, id).Scan(&refs); err != nil {
		return err
	}
	if refs > 0 {
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx, "DELETE FROM "+r.table+" WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetOrCreateTx resolves a name to an ID inside the caller's transaction,
// inserting the row when missing.  Used by admin movie creation to attach
// genres/stars/directors by name.
func (r *NameRepo) GetOrCreateTx(ctx context.Context, tx *sql.Tx, name string) (uint64, error) {
	name = strings.TrimSpace(name)
	var id uint64
	err := tx.QueryRowContext(ctx,
		"SELECT id FROM "+r.table+" WHERE name = ? LIMIT 1", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, "INSERT INTO "+r.table+" (name) VALUES (?)", name)
	if err != nil {
		return 0, err
	}
	newID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(newID), nil
}
