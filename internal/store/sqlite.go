package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mugisha-web/igihozo-server/internal/models"
)

// SQLiteUserStore serves the staff directory from a local SQLite file.
// Used in development when DATABASE_URL is not configured.
type SQLiteUserStore struct {
	db *sql.DB
}

// NewSQLiteUserStore creates a SQLite-backed store.
// If dbPath is empty, defaults to "./data/igihozo.db".
func NewSQLiteUserStore(ctx context.Context, dbPath string) (*SQLiteUserStore, error) {
	if dbPath == "" {
		dbPath = "./data/igihozo.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteUserStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}
	if err := store.seedDemoUsers(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteUserStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'SELLER',
		photo_url TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_users_name ON users(name);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// seedDemoUsers populates an empty development database so the contact
// list is usable out of the box.
func (s *SQLiteUserStore) seedDemoUsers(ctx context.Context) error {
	count, err := s.CountUsers(ctx)
	if err != nil || count > 0 {
		return err
	}

	demo := []models.UserProfile{
		{Name: "Josine Mugisha", Email: "josine@igihozo.local", Role: models.RoleAdmin},
		{Name: "Eric Nshimiyimana", Email: "eric@igihozo.local", Role: models.RoleSeller},
		{Name: "Claudine Uwase", Email: "claudine@igihozo.local", Role: models.RoleSeller},
	}
	for _, user := range demo {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO users (id, name, email, role) VALUES (?, ?, ?, ?)
		`, uuid.NewString(), user.Name, user.Email, string(user.Role))
		if err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteUserStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteUserStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetUser retrieves a user profile by id.
func (s *SQLiteUserStore) GetUser(ctx context.Context, id string) (*models.UserProfile, error) {
	user := &models.UserProfile{}
	var photoURL sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, role, photo_url, created_at
		FROM users WHERE id = ?
	`, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&photoURL,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	user.PhotoURL = photoURL.String
	return user, nil
}

// ListUsers retrieves all user profiles sorted by display name.
func (s *SQLiteUserStore) ListUsers(ctx context.Context) ([]models.UserProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
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
		var photoURL sql.NullString
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
		user.PhotoURL = photoURL.String
		users = append(users, user)
	}

	return users, rows.Err()
}

// CountUsers returns the number of staff accounts.
func (s *SQLiteUserStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
