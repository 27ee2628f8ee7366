package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/erazemk/assettrack/internal/model"
)

var documentColumns = []any{"id", "asset_id", "filename", "mime", "size", "storage_key", "uploaded_at"}

func scanDocument(s interface{ Scan(...any) error }) (*model.Document, error) {
	var d model.Document
	if err := s.Scan(&d.ID, &d.AssetID, &d.Filename, &d.MIME, &d.Size, &d.StorageKey, &d.UploadedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateDocument records an attachment whose blob is already stored under
// d.StorageKey. The asset must be active.
func CreateDocument(ctx context.Context, db *sql.DB, d model.Document) (*model.Document, error) {
	var id int64
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := activeAsset(ctx, tx, d.AssetID); err != nil {
			return err
		}
		if d.Filename == "" {
			return validationf("filename is required")
		}

		result, err := exec(ctx, tx, insertInto("documents").Rows(goqu.Record{
			"asset_id":    d.AssetID,
			"filename":    d.Filename,
			"mime":        d.MIME,
			"size":        d.Size,
			"storage_key": d.StorageKey,
		}))
		if err != nil {
			return fmt.Errorf("creating document: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting document id: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetDocument(ctx, db, id)
}

// GetDocument returns a document by ID, or nil if it does not exist.
func GetDocument(ctx context.Context, db *sql.DB, id int64) (*model.Document, error) {
	row, err := queryRow(ctx, db, selectFrom("documents").Select(documentColumns...).Where(goqu.C("id").Eq(id)))
	if err != nil {
		return nil, err
	}
	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return d, nil
}

// ListDocuments returns an asset's documents in upload order.
func ListDocuments(ctx context.Context, db *sql.DB, assetID int64) ([]model.Document, error) {
	rows, err := query(ctx, db, selectFrom("documents").
		Select(documentColumns...).
		Where(goqu.C("asset_id").Eq(assetID)).
		Order(goqu.C("id").Asc()))
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	docs := []model.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document row and returns it so the caller can
// remove the blob. The owning asset is not touched.
func DeleteDocument(ctx context.Context, db *sql.DB, id int64) (*model.Document, error) {
	var doc *model.Document
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		row, err := queryRow(ctx, tx, selectFrom("documents").Select(documentColumns...).Where(goqu.C("id").Eq(id)))
		if err != nil {
			return err
		}
		doc, err = scanDocument(row)
		if err == sql.ErrNoRows {
			return notFoundf("document %d does not exist", id)
		}
		if err != nil {
			return fmt.Errorf("getting document: %w", err)
		}

		if _, err := exec(ctx, tx, dialect.Delete("documents").Prepared(true).Where(goqu.C("id").Eq(id))); err != nil {
			return fmt.Errorf("deleting document: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}
