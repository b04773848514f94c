package repository

import (
	"context"
	"database/sql"
)

// EngagementRepo covers per-user movie engagement: favorites, ratings and
// like/dislike votes.  All tables are keyed by (user_id, movie_id) and all
// writes are idempotent upserts or no-op deletes.
type EngagementRepo struct {
	db *sql.DB
}

func NewEngagementRepo(db *sql.DB) *EngagementRepo { return &EngagementRepo{db: db} }

// AddFavorite marks a movie as favorite.  Re-adding is a no-op.
func (r *EngagementRepo) AddFavorite(ctx context.Context, userID, movieID uint64) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT IGNORE INTO favorites (user_id, movie_id) VALUES (?,?)",
		userID, movieID)
	return err
}

// RemoveFavorite deletes the favorite row if present.
func (r *EngagementRepo) RemoveFavorite(ctx context.Context, userID, movieID uint64) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM favorites WHERE user_id = ? AND movie_id = ?",
		userID, movieID)
	return err
}

// ListFavorites returns a page of the user's favorite movies.
func (r *EngagementRepo) ListFavorites(ctx context.Context, userID uint64, page, perPage int) ([]Movie, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}
	q := `SELECT m.` + movieColsPrefixed + ` FROM movies m
          JOIN favorites f ON f.movie_id = m.id
          WHERE f.user_id = ?
          ORDER BY f.added_at DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, userID, perPage, (page-1)*perPage)
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

// RateMovie upserts the user's score (1..10) for a movie.
func (r *EngagementRepo) RateMovie(ctx context.Context, userID, movieID uint64, score int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ratings (user_id, movie_id, score) VALUES (?,?,?)
         ON DUPLICATE KEY UPDATE score = VALUES(score)`,
		userID, movieID, score)
	return err
}

// LikeMovie upserts the user's like (true) or dislike (false) vote for a
// movie.  Re-voting flips the existing row.
func (r *EngagementRepo) LikeMovie(ctx context.Context, userID, movieID uint64, like bool) error {
	v := 0
	if like {
		v = 1
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO movie_likes (user_id, movie_id, is_like) VALUES (?,?,?)
         ON DUPLICATE KEY UPDATE is_like = VALUES(is_like)`,
		userID, movieID, v)
	return err
}

// EngagementStats aggregates a movie's votes and ratings for the public
// detail view.  AvgRating is NULL when nobody has rated yet.
type EngagementStats struct {
	Likes     int64
	Dislikes  int64
	AvgRating sql.NullFloat64
}

// StatsFor returns like/dislike counts and the average rating for a movie.
func (r *EngagementRepo) StatsFor(ctx context.Context, movieID uint64) (EngagementStats, error) {
	var s EngagementStats
	err := r.db.QueryRowContext(ctx,
		`SELECT
            COALESCE(SUM(CASE WHEN is_like = 1 THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN is_like = 0 THEN 1 ELSE 0 END), 0)
         FROM movie_likes WHERE movie_id = ?`, movieID).Scan(&s.Likes, &s.Dislikes)
	if err != nil {
		return s, err
	}
	err = r.db.QueryRowContext(ctx,
		"SELECT AVG(score) FROM ratings WHERE movie_id = ?", movieID).Scan(&s.AvgRating)
	return s, err
}

// movieColsPrefixed is movieCols with each column qualified by the alias
// "m." for use in joined queries.
const movieColsPrefixed = "id, m.uuid, m.name, m.year, m.time, m.imdb, m.votes, m.meta_score, m.gross, m.description, m.price_cents, m.certification_id"
