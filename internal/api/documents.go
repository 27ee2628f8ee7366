package api

import (
	"bytes"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/erazemk/assettrack/internal/attach"
	"github.com/erazemk/assettrack/internal/imaging"
	"github.com/erazemk/assettrack/internal/metrics"
	"github.com/erazemk/assettrack/internal/model"
	"github.com/erazemk/assettrack/internal/store"
)

// MaxDocumentSize bounds a single upload.
const MaxDocumentSize = 10 << 20

// DocumentsHandler handles asset attachments.
type DocumentsHandler struct {
	DB      *sql.DB
	Store   attach.Store
	Metrics *metrics.Metrics
}

// Upload handles POST /api/assets/{id}/documents.
func (h *DocumentsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	assetID, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxDocumentSize+1<<20)
	if err := r.ParseMultipartForm(MaxDocumentSize); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "file required")
		return
	}
	defer file.Close()

	asset, err := store.GetAsset(r.Context(), h.DB, assetID)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if asset == nil || !asset.IsActive {
		jsonError(w, http.StatusNotFound, "asset not found")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	doc, err := imaging.Prepare(header.Filename, data)
	if err != nil {
		if errors.Is(err, imaging.ErrUnsupported) {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("preparing document", "asset", assetID, "error", err)
		jsonError(w, http.StatusBadRequest, "could not process file")
		return
	}

	key := attach.NewKey(assetID, doc.Filename)
	if err := h.Store.Put(r.Context(), key, bytes.NewReader(doc.Data), int64(len(doc.Data)), doc.MIME); err != nil {
		slog.Error("storing document", "key", key, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to store file")
		return
	}

	created, err := store.CreateDocument(r.Context(), h.DB, model.Document{
		AssetID:    assetID,
		Filename:   doc.Filename,
		MIME:       doc.MIME,
		Size:       int64(len(doc.Data)),
		StorageKey: key,
	})
	observe(h.Metrics, "upload_document", err)
	if err != nil {
		if derr := h.Store.Delete(r.Context(), key); derr != nil {
			slog.Warn("removing orphaned blob", "key", key, "error", derr)
		}
		storeError(w, r, err)
		return
	}

	slog.Info("document uploaded", "asset", assetID, "document", created.ID, "size", created.Size)
	jsonResponse(w, http.StatusCreated, created)
}

// List handles GET /api/assets/{id}/documents.
func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	assetID, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	docs, err := store.ListDocuments(r.Context(), h.DB, assetID)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if docs == nil {
		docs = []model.Document{}
	}
	jsonResponse(w, http.StatusOK, docs)
}

// Download handles GET /api/documents/{id}.
func (h *DocumentsHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	doc, err := store.GetDocument(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if doc == nil {
		jsonError(w, http.StatusNotFound, "document not found")
		return
	}

	blob, err := h.Store.Get(r.Context(), doc.StorageKey)
	if errors.Is(err, attach.ErrNotFound) {
		slog.Warn("document blob missing", "document", id, "key", doc.StorageKey)
		jsonError(w, http.StatusNotFound, "document content not found")
		return
	}
	if err != nil {
		slog.Error("reading document", "document", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to read file")
		return
	}
	defer blob.Close()

	w.Header().Set("Content-Type", doc.MIME)
	w.Header().Set("Content-Length", strconv.FormatInt(doc.Size, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	if _, err := io.Copy(w, blob); err != nil {
		slog.Warn("streaming document", "document", id, "error", err)
	}
}

// Delete handles DELETE /api/documents/{id}.
func (h *DocumentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	doc, err := store.DeleteDocument(r.Context(), h.DB, id)
	observe(h.Metrics, "delete_document", err)
	if err != nil {
		storeError(w, r, err)
		return
	}

	if err := h.Store.Delete(r.Context(), doc.StorageKey); err != nil && !errors.Is(err, attach.ErrNotFound) {
		slog.Warn("removing document blob", "key", doc.StorageKey, "error", err)
	}

	slog.Info("document deleted", "asset", doc.AssetID, "document", id)
	w.WriteHeader(http.StatusNoContent)
}
