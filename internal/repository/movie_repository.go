// Package repository contains data access logic for the movie catalog. This
// file defines the Movie model and repository methods for movies.  Prices
// are stored as integer cents; a NULL price means the movie is listed but
// not purchasable.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Movie mirrors the 'movies' table.
type Movie struct {
	ID              uint64
	UUID            string
	Name            string
	Year            int
	Time            int // runtime in minutes
	IMDB            float64
	Votes           int
	MetaScore       sql.NullFloat64
	Gross           sql.NullFloat64
	Description     string
	PriceCents      sql.NullInt64
	CertificationID uint64
}

// MovieDetail is a movie with its resolved associations.
type MovieDetail struct {
	Movie
	Certification string
	Genres        []string
	Stars         []string
	Directors     []string
}

// MovieFilter captures list query parameters.  Zero values mean "no
// constraint"; SortBy must be one of name, price, year, imdb.
type MovieFilter struct {
	Page    int
	PerPage int
	Year    int
	MinIMDB float64
	Search  string
	SortBy  string
}

// ErrMovieNotFound indicates that a movie was not located in the DB.
var ErrMovieNotFound = errors.New("movie not found")

// MovieRepo manages persistence for movies and their associations.
type MovieRepo struct {
	db *sql.DB
}

func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories.
func (r *MovieRepo) DB() *sql.DB { return r.db }

const movieCols = "id, uuid, name, year, time, imdb, votes, meta_score, gross, description, price_cents, certification_id"

func scanMovie(row interface{ Scan(...any) error }, m *Movie) error {
	return row.Scan(&m.ID, &m.UUID, &m.Name, &m.Year, &m.Time, &m.IMDB, &m.Votes,
		&m.MetaScore, &m.Gross, &m.Description, &m.PriceCents, &m.CertificationID)
}

// sortColumns whitelists the ORDER BY targets accepted from the API.
var sortColumns = map[string]string{
	"name":  "name",
	"price": "price_cents",
	"year":  "year",
	"imdb":  "imdb",
}

// List returns a page of movies honoring the filter.  Search matches name
// and description case-insensitively.
func (r *MovieRepo) List(ctx context.Context, f MovieFilter) ([]Movie, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 || f.PerPage > 100 {
		f.PerPage = 10
	}
	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = "name"
	}

	q := "SELECT " + movieCols + " FROM movies"
	var (
		conds []string
		args  []any
	)
	if f.Year != 0 {
		conds = append(conds, "year = ?")
		args = append(args, f.Year)
	}
	if f.MinIMDB != 0 {
		conds = append(conds, "imdb >= ?")
		args = append(args, f.MinIMDB)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		conds = append(conds, "(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)")
		args = append(args, like, like)
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += fmt.Sprintf(" ORDER BY %s ASC LIMIT ? OFFSET ?", col)
	args = append(args, f.PerPage, (f.Page-1)*f.PerPage)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Movie
	for rows.Next() {
		var m Movie
		if err := scanMovie(rows, &m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetByID fetches a bare movie row.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*Movie, error) {
	var m Movie
	err := scanMovie(r.db.QueryRowContext(ctx,
		"SELECT "+movieCols+" FROM movies WHERE id = ?", id), &m)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMovieNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetDetail fetches a movie together with its certification name and the
// names of its genres, stars and directors.
func (r *MovieRepo) GetDetail(ctx context.Context, id uint64) (*MovieDetail, error) {
	m, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &MovieDetail{Movie: *m}
	err = r.db.QueryRowContext(ctx,
		"SELECT name FROM certifications WHERE id = ?", m.CertificationID).Scan(&d.Certification)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	assoc := []struct {
		q    string
		dest *[]string
	}{
		{`SELECT g.name FROM genres g JOIN movie_genres mg ON mg.genre_id = g.id WHERE mg.movie_id = ? ORDER BY g.name`, &d.Genres},
		{`SELECT s.name FROM stars s JOIN movie_stars ms ON ms.star_id = s.id WHERE ms.movie_id = ? ORDER BY s.name`, &d.Stars},
		{`SELECT dr.name FROM directors dr JOIN movie_directors md ON md.director_id = dr.id WHERE md.movie_id = ? ORDER BY dr.name`, &d.Directors},
	}
	for _, a := range assoc {
		rows, err := r.db.QueryContext(ctx, a.q, id)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var n string
			if err := rows.Scan(&n); err != nil {
				rows.Close()
				return nil, err
			}
			*a.dest = append(*a.dest, n)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return d, nil
}

// GenresFor returns genre names for a set of movie IDs, keyed by movie.
// Used to decorate cart listings without N+1 detail queries.
func (r *MovieRepo) GenresFor(ctx context.Context, movieIDs []uint64) (map[uint64][]string, error) {
	out := make(map[uint64][]string, len(movieIDs))
	if len(movieIDs) == 0 {
		return out, nil
	}
	q := `SELECT mg.movie_id, g.name FROM movie_genres mg JOIN genres g ON g.id = mg.genre_id WHERE mg.movie_id IN (?` +
		strings.Repeat(",?", len(movieIDs)-1) + `) ORDER BY g.name`
	args := make([]any, len(movieIDs))
	for i, id := range movieIDs {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id   uint64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[id] = append(out[id], name)
	}
	return out, rows.Err()
}

// CreateTx inserts a movie plus its association rows inside the provided
// transaction.  genreIDs/starIDs/directorIDs must already be resolved (see
// NameRepo.GetOrCreateTx).  A fresh public UUID is assigned.  Duplicate
// (name, year, time) maps to ErrDuplicate.
func (r *MovieRepo) CreateTx(ctx context.Context, tx *sql.Tx, m *Movie, genreIDs, starIDs, directorIDs []uint64) error {
	m.UUID = uuid.NewString()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO movies (uuid, name, year, time, imdb, votes, meta_score, gross, description, price_cents, certification_id)
         VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		m.UUID, m.Name, m.Year, m.Time, m.IMDB, m.Votes, m.MetaScore, m.Gross, m.Description, m.PriceCents, m.CertificationID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	links := []struct {
		q   string
		ids []uint64
	}{
		{"INSERT INTO movie_genres (movie_id, genre_id) VALUES (?,?)", genreIDs},
		{"INSERT INTO movie_stars (movie_id, star_id) VALUES (?,?)", starIDs},
		{"INSERT INTO movie_directors (movie_id, director_id) VALUES (?,?)", directorIDs},
	}
	for _, l := range links {
		for _, refID := range l.ids {
			if _, err := tx.ExecContext(ctx, l.q, m.ID, refID); err != nil {
				return err
			}
		}
	}
	return nil
}

// Update rewrites the scalar columns of a movie.  Associations are not
// touched; admins manage them by recreating the movie in practice.
func (r *MovieRepo) Update(ctx context.Context, m *Movie) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE movies SET name=?, year=?, time=?, imdb=?, votes=?, meta_score=?, gross=?, description=?, price_cents=?, certification_id=?
         WHERE id=?`,
		m.Name, m.Year, m.Time, m.IMDB, m.Votes, m.MetaScore, m.Gross, m.Description, m.PriceCents, m.CertificationID, m.ID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrDuplicate
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Row may exist with identical values; confirm existence.
		if _, err := r.GetByID(ctx, m.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a movie and its association/cart rows in one transaction.
// Movies referenced by order items cannot be removed (order snapshots must
// keep their FK target); that surfaces as ErrConflict.
func (r *MovieRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var ordered int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM order_items WHERE movie_id = ?", id).Scan(&ordered); err != nil {
		return err
	}
	if ordered > 0 {
		return ErrConflict
	}
	for _, q := range []string{
		"DELETE FROM movie_genres WHERE movie_id = ?",
		"DELETE FROM movie_stars WHERE movie_id = ?",
		"DELETE FROM movie_directors WHERE movie_id = ?",
		"DELETE FROM cart_items WHERE movie_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM movies WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMovieNotFound
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
