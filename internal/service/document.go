package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kwachapay/emi-platform/internal/domain"
	"github.com/kwachapay/emi-platform/internal/models"
)

var (
	ErrDocumentNotFound    = errors.New("document not found")
	ErrDocumentTooLarge    = errors.New("document exceeds maximum size")
	ErrUnsupportedDocument = errors.New("unsupported document content type")
)

var allowedDocumentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// DocumentService stores uploaded KYC and VMF evidence images on disk and
// records their metadata.
type DocumentService struct {
	store   QueryStore
	baseDir string
}

func NewDocumentService(store QueryStore, baseDir string) *DocumentService {
	return &DocumentService{store: store, baseDir: baseDir}
}

type UploadDocumentRequest struct {
	OwnerID        uuid.UUID
	OrganizationID *uuid.UUID
	Kind           string
	FileName       string
	ContentType    string
	Body           io.Reader
}

// Upload reads at most the size cap from the body, writes the file under the
// base directory, and records the row with a sha256 checksum.
func (s *DocumentService) Upload(ctx context.Context, req UploadDocumentRequest) (*models.Document, error) {
	ext, ok := allowedDocumentTypes[req.ContentType]
	if !ok {
		return nil, ErrUnsupportedDocument
	}
	if req.Kind == "" {
		return nil, errors.New("document kind is required")
	}

	// Read one byte past the cap to distinguish "at the cap" from "over it".
	data, err := io.ReadAll(io.LimitReader(req.Body, domain.DocumentMaxSizeBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > domain.DocumentMaxSizeBytes {
		return nil, ErrDocumentTooLarge
	}
	if len(data) == 0 {
		return nil, errors.New("empty upload")
	}

	id := uuid.New()
	sum := sha256.Sum256(data)
	storagePath := filepath.Join(s.baseDir, id.String()+ext)

	if err := os.MkdirAll(s.baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("prepare document directory: %w", err)
	}
	if err := os.WriteFile(storagePath, data, 0o640); err != nil {
		return nil, fmt.Errorf("write document: %w", err)
	}

	doc := &models.Document{
		ID:             id,
		OwnerID:        req.OwnerID,
		OrganizationID: req.OrganizationID,
		Kind:           req.Kind,
		FileName:       req.FileName,
		ContentType:    req.ContentType,
		SizeBytes:      int64(len(data)),
		Checksum:       hex.EncodeToString(sum[:]),
		StoragePath:    storagePath,
	}
	if err := s.store.Queries().CreateDocument(ctx, doc); err != nil {
		// Best effort: don't leave an orphaned file behind.
		_ = os.Remove(storagePath)
		return nil, err
	}
	return doc, nil
}

func (s *DocumentService) Get(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	doc, err := s.store.Queries().GetDocument(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// Open returns a reader over the stored file for download handlers.
func (s *DocumentService) Open(ctx context.Context, id uuid.UUID) (*models.Document, io.ReadCloser, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(doc.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open document file: %w", err)
	}
	return doc, f, nil
}
