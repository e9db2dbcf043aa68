package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kwachapay/emi-platform/internal/models"
)

func (q *Queries) CreateDocument(ctx context.Context, doc *models.Document) error {
	query := `INSERT INTO documents (id, owner_id, organization_id, kind, file_name, content_type, size_bytes, checksum, storage_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW()) RETURNING created_at`
	err := q.db.QueryRow(ctx, query, doc.ID, doc.OwnerID, doc.OrganizationID, doc.Kind, doc.FileName,
		doc.ContentType, doc.SizeBytes, doc.Checksum, doc.StoragePath).Scan(&doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (q *Queries) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	var d models.Document
	err := q.db.QueryRow(ctx,
		`SELECT id, owner_id, organization_id, kind, file_name, content_type, size_bytes, checksum, storage_path, created_at
		 FROM documents WHERE id = $1`, id).
		Scan(&d.ID, &d.OwnerID, &d.OrganizationID, &d.Kind, &d.FileName, &d.ContentType, &d.SizeBytes,
			&d.Checksum, &d.StoragePath, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
