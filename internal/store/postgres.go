package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mugisha-web/igihozo-server/internal/metrics"
	"github.com/mugisha-web/igihozo-server/internal/models"
)

// PostgresUserStore serves the staff directory from PostgreSQL.
type PostgresUserStore struct {
	pool *pgxpool.Pool
}

// NewPostgresUserStore creates a store with a connection pool.
func NewPostgresUserStore(ctx context.Context, databaseURL string) (*PostgresUserStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresUserStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresUserStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresUserStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// GetUser retrieves a user profile by id.
func (s *PostgresUserStore) GetUser(ctx context.Context, id string) (*models.UserProfile, error) {
	start := time.Now()
	defer func() { metrics.PostgresLatency.Observe(time.Since(start).Seconds()) }()

	user := &models.UserProfile{}
	var photoURL *string
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, email, role, photo_url, created_at
		FROM users WHERE id = $1
	`, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&photoURL,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if photoURL != nil {
		user.PhotoURL = *photoURL
	}
	return user, nil
}

// ListUsers retrieves all user profiles sorted by display name.
func (s *PostgresUserStore) ListUsers(ctx context.Context) ([]models.UserProfile, error) {
	start := time.Now()
	defer func() { metrics.PostgresLatency.Observe(time.Since(start).Seconds()) }()

	rows, err := s.pool.Query(ctx, `
		SELECT id, name, email, role, photo_url, created_at
		FROM users
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.UserProfile
	for rows.Next() {
		var user models.UserProfile
		var photoURL *string
		err := rows.Scan(
			&user.ID,
			&user.Name,
			&user.Email,
			&user.Role,
			&photoURL,
			&user.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if photoURL != nil {
			user.PhotoURL = *photoURL
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// CountUsers returns the number of staff accounts.
func (s *PostgresUserStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
