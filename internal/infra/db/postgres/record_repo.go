package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/analysis"
)

type RecordRepository struct{ db *sql.DB }

func NewRecordRepository(db *sql.DB) *RecordRepository { return &RecordRepository{db: db} }

func (r *RecordRepository) Create(ctx context.Context, rec *analysis.Record) error {
	const q = `
INSERT INTO product_analyses
(id, product_name, product_summary,
 extracted_ingredients, extracted_nutrition, extracted_brand,
 image_url, is_degraded_mode, barcode, identified_by,
 ingredients_data, composition_data, reddit_data, created_at)
VALUES ($1,$2,$3,
        $4,$5,$6,
        $7,$8,$9,$10,
        $11,$12,$13,$14);`

	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		string(rec.ID), rec.ProductName, rec.ProductSummary,
		rec.ExtractedText.Ingredients, rec.ExtractedText.Nutrition, rec.ExtractedText.Brand,
		nullString(rec.ImageURL), rec.IsDegradedMode, rec.Barcode, rec.IdentifiedBy,
		nullRaw(rec.IngredientsData), nullRaw(rec.CompositionData), nullRaw(rec.RedditData),
		created.UTC(),
	)
	if err != nil {
		return wrapf(err, "insert record %s", rec.ID)
	}
	return nil
}

func (r *RecordRepository) Get(ctx context.Context, id analysis.ID) (*analysis.Record, error) {
	const q = `
SELECT id, product_name, product_summary,
       extracted_ingredients, extracted_nutrition, extracted_brand,
       image_url, is_degraded_mode, barcode, identified_by,
       ingredients_data, composition_data, reddit_data, created_at
FROM product_analyses
WHERE id=$1 LIMIT 1;`

	var (
		rec             analysis.Record
		imageURL        sql.NullString
		ing, comp, redd []byte
	)
	err := r.db.QueryRowContext(ctx, q, string(id)).Scan(
		&rec.ID, &rec.ProductName, &rec.ProductSummary,
		&rec.ExtractedText.Ingredients, &rec.ExtractedText.Nutrition, &rec.ExtractedText.Brand,
		&imageURL, &rec.IsDegradedMode, &rec.Barcode, &rec.IdentifiedBy,
		&ing, &comp, &redd, &rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, analysis.ErrNotFound
	}
	if err != nil {
		return nil, wrapf(err, "get record %s", id)
	}
	if imageURL.Valid {
		rec.ImageURL = &imageURL.String
	}
	rec.IngredientsData = rawOrNil(ing)
	rec.CompositionData = rawOrNil(comp)
	rec.RedditData = rawOrNil(redd)
	return &rec, nil
}

// SetFacet writes and reads back in one statement: COALESCE keeps an existing
// value unless overwrite is set.
func (r *RecordRepository) SetFacet(ctx context.Context, id analysis.ID, f analysis.Facet, data json.RawMessage, overwrite bool) (json.RawMessage, error) {
	col, err := facetColumn(f)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`UPDATE product_analyses SET %s = COALESCE(%s, $1) WHERE id=$2 RETURNING %s;`, col, col, col)
	if overwrite {
		q = fmt.Sprintf(`UPDATE product_analyses SET %s = $1 WHERE id=$2 RETURNING %s;`, col, col)
	}
	var stored []byte
	err = r.db.QueryRowContext(ctx, q, string(data), string(id)).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, analysis.ErrNotFound
	}
	if err != nil {
		return nil, wrapf(err, "set %s on %s", f, id)
	}
	return rawOrNil(stored), nil
}

func (r *RecordRepository) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }
