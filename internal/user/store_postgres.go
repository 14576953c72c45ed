package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	migrations "authrelay/migrations/postgres"
)

// PostgresStore persists users in Postgres. CreateIfAbsent relies on
// INSERT … ON CONFLICT DO NOTHING plus a re-select, so concurrent first
// logins for the same username converge on one row without table locks.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// PostgresConfig mirrors the storage.postgres settings block.
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		pc.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pc.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() { s.pool.Close() }

func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// RunMigrations applies the embedded schema files in lexical order.
func (s *PostgresStore) RunMigrations(ctx context.Context) error {
	entries, err := migrations.FS.ReadDir(".")
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		sql, err := migrations.FS.ReadFile(e.Name())
		if err != nil {
			return err
		}
		if _, err := s.pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("migration %s: %w", e.Name(), err)
		}
	}
	return nil
}

const userColumns = `id, username, display_name, email, groups, permissions, active, origin, password_hash, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Email, &u.Groups,
		&u.Permissions, &u.Active, &u.Origin, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*User, error) {
	q := `SELECT ` + userColumns + ` FROM app_user WHERE id=$1`
	return scanUser(s.pool.QueryRow(ctx, q, id))
}

func (s *PostgresStore) FindByName(ctx context.Context, username string) (*User, error) {
	q := `SELECT ` + userColumns + ` FROM app_user WHERE lower(username)=lower($1)`
	return scanUser(s.pool.QueryRow(ctx, q, username))
}

func (s *PostgresStore) List(ctx context.Context) ([]*User, error) {
	q := `SELECT ` + userColumns + ` FROM app_user ORDER BY username`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Create(ctx context.Context, u *User) error {
	now := time.Now().UTC()
	// Conflict target is the case-insensitive unique index, so "Alice"
	// beside "alice" is a conflict, matching FindByName and the memory store.
	q := `INSERT INTO app_user (id, username, display_name, email, groups, permissions, active, origin, password_hash, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$10)
		ON CONFLICT ((lower(username))) DO NOTHING`
	tag, err := s.pool.Exec(ctx, q, u.ID, u.Username, u.DisplayName, u.Email,
		u.Groups, u.Permissions, u.Active, u.Origin, u.PasswordHash, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

func (s *PostgresStore) CreateIfAbsent(ctx context.Context, u *User) (*User, bool, error) {
	err := s.Create(ctx, u)
	if err == nil {
		return u.Clone(), true, nil
	}
	if !errors.Is(err, ErrConflict) {
		return nil, false, err
	}
	existing, err := s.FindByName(ctx, u.Username)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *PostgresStore) Update(ctx context.Context, u *User) error {
	q := `UPDATE app_user
		SET username=$2, display_name=$3, email=$4, groups=$5, permissions=$6,
			active=$7, origin=$8, password_hash=$9, updated_at=now()
		WHERE id=$1`
	tag, err := s.pool.Exec(ctx, q, u.ID, u.Username, u.DisplayName, u.Email,
		u.Groups, u.Permissions, u.Active, u.Origin, u.PasswordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM app_user WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
