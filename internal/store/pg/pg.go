// Package pg is the Postgres store. Simple reads and writes go through
// sqlx; the transactional decision paths (offer decide, change decide,
// provider status) lock their rows with SELECT ... FOR UPDATE so concurrent
// calls serialize on the database.
package pg

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/contract"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/offer"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/order"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/request"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/tenancy"
)

// Store implements every domain store interface over one connection pool.
type Store struct {
	db *sqlx.DB
}

var (
	_ tenancy.Store  = (*Store)(nil)
	_ contract.Store = (*Store)(nil)
	_ request.Store  = (*Store)(nil)
	_ offer.Store    = (*Store)(nil)
	_ order.Store    = (*Store)(nil)
)

// Open connects to Postgres via the pgx stdlib driver.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection, for tests.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: sqlx.NewDb(db, "pgx")}
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the raw pool for health checks and migrations.
func (s *Store) DB() *sql.DB { return s.db.DB }

// marshalJSON encodes a value for a jsonb column, mapping empties to NULL.
func marshalJSON(v any) ([]byte, error) {
	switch t := v.(type) {
	case []string:
		if len(t) == 0 {
			return nil, nil
		}
	case []order.ChangeEntry:
		if len(t) == 0 {
			return nil, nil
		}
	case json.RawMessage:
		if len(t) == 0 {
			return nil, nil
		}
		return t, nil
	}
	return json.Marshal(v)
}

func unmarshalJSON(data []byte, dst any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}

// nullTime maps a zero time to NULL and back.
func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func fromNullTime(nt sql.NullTime) time.Time {
	if !nt.Valid {
		return time.Time{}
	}
	return nt.Time.UTC()
}
