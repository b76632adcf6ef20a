/*
Package directory implements the identity directory.

This file contains the Postgres-backed Store: connection pool setup, embedded
schema migrations, and the account queries used by registration, login, and
profile resolution.
*/
package directory

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"chatrelay/internal/pkg/logx"
	"chatrelay/internal/pkg/randx"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Store is the Postgres-backed implementation of Service.
type Store struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewStore initializes the PostgreSQL connection pool, runs pending
// migrations, and returns the directory store.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database DSN: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	if err := runMigrations(sqlDB); err != nil {
		pool.Close()
		return nil, err
	}

	storeLogger := logx.Logger().With().Str("component", "directory").Logger()

	return &Store{pool: pool, logger: storeLogger}, nil
}

// runMigrations applies all pending migrations from the embedded filesystem.
func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// CreateUser registers a new account keyed by email with a bcrypt password hash.
func (s *Store) CreateUser(ctx context.Context, displayName, email, password string) (*Profile, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	id := randx.UserID()

	_, err = s.pool.Exec(ctx,
		`INSERT INTO users (id, display_name, email, password_hash) VALUES ($1, $2, $3, $4)`,
		id, displayName, email, string(hashedPassword),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	s.logger.Info().Str("user_id", id).Msg("New account registered.")

	return &Profile{Key: email, ID: id, DisplayName: displayName}, nil
}

// Authenticate verifies the email/password pair against the stored hash.
// A missing account and a wrong password both map to ErrBadCredentials so
// callers cannot distinguish them.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*Profile, error) {
	var (
		id           string
		displayName  string
		passwordHash string
	)

	err := s.pool.QueryRow(ctx,
		`SELECT id, display_name, password_hash FROM users WHERE email = $1`,
		email,
	).Scan(&id, &displayName, &passwordHash)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBadCredentials
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return nil, ErrBadCredentials
	}

	if _, err := s.pool.Exec(ctx, `UPDATE users SET last_login_at = now() WHERE id = $1`, id); err != nil {
		s.logger.Error().Err(err).Str("user_id", id).Msg("Failed to update last_login_at.")
	}

	return &Profile{Key: email, ID: id, DisplayName: displayName}, nil
}

// Resolve maps a user key (email) to its display profile.
func (s *Store) Resolve(ctx context.Context, userKey string) (*Profile, error) {
	var (
		id          string
		displayName string
	)

	err := s.pool.QueryRow(ctx,
		`SELECT id, display_name FROM users WHERE email = $1`,
		userKey,
	).Scan(&id, &displayName)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	return &Profile{Key: userKey, ID: id, DisplayName: displayName}, nil
}
