package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kwachapay/emi-platform/internal/api/middleware"
	"github.com/kwachapay/emi-platform/internal/domain"
	"github.com/kwachapay/emi-platform/internal/service"
	"go.uber.org/zap"
)

// DocumentHandler handles KYC and VMF evidence uploads.
type DocumentHandler struct {
	docSvc *service.DocumentService
}

func NewDocumentHandler(docSvc *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{docSvc: docSvc}
}

// UploadDocument handles POST /v1/documents as multipart/form-data with a
// "file" part and a "kind" field.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, domain.DocumentMaxSizeBytes+1024)
	if err := r.ParseMultipartForm(domain.DocumentMaxSizeBytes); err != nil {
		RespondError(w, r, http.StatusRequestEntityTooLarge, "document/too-large", "Upload exceeds the 5 MiB limit")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/missing-file", "file part is required")
		return
	}
	defer file.Close()

	kind := strings.TrimSpace(r.FormValue("kind"))
	if kind == "" {
		RespondError(w, r, http.StatusBadRequest, "request/missing-kind", "kind field is required")
		return
	}

	var orgID *uuid.UUID
	if v := middleware.OrganizationIDFromContext(r.Context()); v != "" {
		if parsed, perr := uuid.Parse(v); perr == nil {
			orgID = &parsed
		}
	}

	doc, err := h.docSvc.Upload(r.Context(), service.UploadDocumentRequest{
		OwnerID:        actorID,
		OrganizationID: orgID,
		Kind:           kind,
		FileName:       header.Filename,
		ContentType:    header.Header.Get("Content-Type"),
		Body:           file,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedDocument):
			RespondError(w, r, http.StatusUnsupportedMediaType, "document/unsupported-type", "Only JPEG and PNG uploads are accepted")
			return
		case errors.Is(err, service.ErrDocumentTooLarge):
			RespondError(w, r, http.StatusRequestEntityTooLarge, "document/too-large", "Upload exceeds the 5 MiB limit")
			return
		}
		zap.L().Error("upload document failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "document/upload-failed", "Failed to store document")
		return
	}

	RespondJSON(w, http.StatusCreated, doc)
}

// DownloadDocument handles GET /v1/documents/{id} (finance or admin).
func (h *DocumentHandler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	docID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-document-id", "Invalid document ID")
		return
	}

	doc, body, err := h.docSvc.Open(r.Context(), docID)
	if err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			RespondError(w, r, http.StatusNotFound, "document/not-found", "Document not found")
			return
		}
		zap.L().Error("open document failed", zap.Error(err), zap.String("document_id", docID.String()))
		RespondError(w, r, http.StatusInternalServerError, "document/read-failed", "Failed to read document")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(doc.SizeBytes, 10))
	w.Header().Set("Content-Disposition", `inline; filename="`+doc.FileName+`"`)
	_, _ = io.Copy(w, body)
}
