package persist

import (
	"context"
	"database/sql"
	"errors"

	"github.com/joeblew999/plat-style/internal/db"
)

// DuckDBSlot stores the slot as a row of the slots table.
type DuckDBSlot struct {
	conn *sql.DB
	name string
}

// NewDuckDBSlot opens <dataDir>/duckdb/style.duckdb. An empty dataDir uses an
// in-memory database.
func NewDuckDBSlot(dataDir, name string) (*DuckDBSlot, error) {
	conn, err := db.Open(db.Config{DataDir: dataDir, DBName: "style"})
	if err != nil {
		return nil, err
	}
	return &DuckDBSlot{conn: conn, name: name}, nil
}

func (s *DuckDBSlot) Name() string { return s.name }

func (s *DuckDBSlot) Read(ctx context.Context) ([]byte, error) {
	var body string
	err := s.conn.QueryRowContext(ctx,
		`SELECT body FROM slots WHERE name = ?`, s.name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotEmpty
	}
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}

func (s *DuckDBSlot) Write(ctx context.Context, data []byte) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO slots (name, body, updated_at) VALUES (?, ?, now())
		ON CONFLICT (name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		s.name, string(data))
	return err
}

func (s *DuckDBSlot) Close() error {
	return s.conn.Close()
}
