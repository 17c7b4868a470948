package mysql

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// test ping
	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Facet payloads are LONGTEXT rather than JSON: the JSON type re-encodes
// documents and reads must return the bytes that were written. image_url may
// hold a whole data: URL, larger than MEDIUMTEXT's 16 MiB.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS product_analyses (
  id                    CHAR(36)     NOT NULL PRIMARY KEY,
  product_name          VARCHAR(255) NOT NULL,
  product_summary       TEXT         NOT NULL,
  extracted_ingredients TEXT         NOT NULL,
  extracted_nutrition   TEXT         NOT NULL,
  extracted_brand       VARCHAR(255) NOT NULL,
  image_url             LONGTEXT     NULL,
  is_degraded_mode      BOOLEAN      NOT NULL,
  barcode               VARCHAR(14)  NOT NULL DEFAULT '',
  identified_by         VARCHAR(64)  NOT NULL DEFAULT '',
  ingredients_data      LONGTEXT     NULL,
  composition_data      LONGTEXT     NULL,
  reddit_data           LONGTEXT     NULL,
  created_at            DATETIME(6)  NOT NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
  seq         BIGINT      NOT NULL AUTO_INCREMENT PRIMARY KEY,
  analysis_id CHAR(36)    NOT NULL,
  message     TEXT        NOT NULL,
  response    TEXT        NOT NULL,
  created_at  DATETIME(6) NOT NULL,
  INDEX idx_chat_analysis (analysis_id, seq)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
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
