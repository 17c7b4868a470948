package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Facet payloads are TEXT rather than JSONB so reads return the written bytes.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS product_analyses (
  id                    TEXT        PRIMARY KEY,
  product_name          TEXT        NOT NULL,
  product_summary       TEXT        NOT NULL,
  extracted_ingredients TEXT        NOT NULL,
  extracted_nutrition   TEXT        NOT NULL,
  extracted_brand       TEXT        NOT NULL,
  image_url             TEXT        NULL,
  is_degraded_mode      BOOLEAN     NOT NULL,
  barcode               TEXT        NOT NULL DEFAULT '',
  identified_by         TEXT        NOT NULL DEFAULT '',
  ingredients_data      TEXT        NULL,
  composition_data      TEXT        NULL,
  reddit_data           TEXT        NULL,
  created_at            TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
  seq         BIGSERIAL   PRIMARY KEY,
  analysis_id TEXT        NOT NULL,
  message     TEXT        NOT NULL,
  response    TEXT        NOT NULL,
  created_at  TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_analysis ON chat_messages (analysis_id, seq)`,
}

// EnsureSchema creates the tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, q := range schema {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}
