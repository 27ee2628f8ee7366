package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/assettrack/internal/attach"
	"github.com/erazemk/assettrack/internal/metrics"
	"github.com/erazemk/assettrack/internal/model"
	"github.com/erazemk/assettrack/internal/store"
)

// Options configures the API router.
type Options struct {
	// Documents stores attachment blobs. Document routes are not registered
	// when nil.
	Documents attach.Store
	// Metrics, when set, is updated by handlers and served on /metrics.
	Metrics *metrics.Metrics

	PageSize    int
	MaxPageSize int
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, opts Options) http.Handler {
	if opts.PageSize <= 0 {
		opts.PageSize = store.DefaultPageSize
	}
	if opts.MaxPageSize <= 0 || opts.MaxPageSize > store.MaxPageSize {
		opts.MaxPageSize = store.MaxPageSize
	}

	mux := http.NewServeMux()

	assetsHandler := &AssetsHandler{DB: db, Metrics: opts.Metrics, PageSize: opts.PageSize, MaxPageSize: opts.MaxPageSize}
	repairsHandler := &RepairsHandler{DB: db, Metrics: opts.Metrics}
	transfersHandler := &TransfersHandler{DB: db, Metrics: opts.Metrics}
	summaryHandler := &SummaryHandler{DB: db}

	// Assets.
	mux.HandleFunc("GET /api/assets", assetsHandler.List)
	mux.HandleFunc("POST /api/assets", assetsHandler.Create)
	mux.HandleFunc("GET /api/assets/export.xlsx", assetsHandler.Export)
	mux.HandleFunc("GET /api/assets/{id}", assetsHandler.Get)
	mux.HandleFunc("PUT /api/assets/{id}", assetsHandler.Update)
	mux.HandleFunc("PATCH /api/assets/{id}", assetsHandler.Patch)
	mux.HandleFunc("DELETE /api/assets/{id}", assetsHandler.Delete)
	mux.HandleFunc("GET /api/assets/{id}/history", assetsHandler.History)
	mux.HandleFunc("GET /api/assets/{id}/transfers", transfersHandler.ListForAsset)
	mux.HandleFunc("GET /api/assets/{id}/replay", transfersHandler.Replay)

	// Repair tickets.
	mux.HandleFunc("POST /api/repair-tickets", repairsHandler.Create)
	mux.HandleFunc("GET /api/repair-tickets", repairsHandler.List)
	mux.HandleFunc("GET /api/repair-tickets/{id}", repairsHandler.Get)
	mux.HandleFunc("PATCH /api/repair-tickets/{id}", repairsHandler.Patch)

	// Transfer ledger.
	mux.HandleFunc("POST /api/transfers", transfersHandler.Create)
	mux.HandleFunc("GET /api/transfers", transfersHandler.List)
	mux.HandleFunc("GET /api/transfers/verify", transfersHandler.Verify)

	// Master data catalogs.
	for _, kind := range model.CatalogKinds {
		h := &CatalogHandler{DB: db, Kind: kind}
		base := "/api/" + string(kind)
		mux.HandleFunc("GET "+base, h.List)
		mux.HandleFunc("POST "+base, h.Create)
		mux.HandleFunc("GET "+base+"/{id}", h.Get)
		mux.HandleFunc("PATCH "+base+"/{id}", h.Update)
		mux.HandleFunc("DELETE "+base+"/{id}", h.Delete)
	}

	// Documents.
	if opts.Documents != nil {
		documentsHandler := &DocumentsHandler{DB: db, Store: opts.Documents, Metrics: opts.Metrics}
		mux.HandleFunc("POST /api/assets/{id}/documents", documentsHandler.Upload)
		mux.HandleFunc("GET /api/assets/{id}/documents", documentsHandler.List)
		mux.HandleFunc("GET /api/documents/{id}", documentsHandler.Download)
		mux.HandleFunc("DELETE /api/documents/{id}", documentsHandler.Delete)
	}

	mux.HandleFunc("GET /api/summary", summaryHandler.Get)
	mux.HandleFunc("GET /healthz", summaryHandler.Health)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics.Handler())
	}

	return mux
}
