package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"dptmirror/internal/config"
	"dptmirror/internal/domain/models"
	"dptmirror/internal/domain/services"
	"dptmirror/internal/httputil"
)

// MirrorHandler serves the read-only mirror API.
type MirrorHandler struct {
	mirror services.MirrorService
	logger *slog.Logger
}

// NewMirrorHandler creates the mirror API handler.
func NewMirrorHandler(mirror services.MirrorService, logger *slog.Logger) *MirrorHandler {
	return &MirrorHandler{mirror: mirror, logger: logger}
}

// Register mounts the API routes on the given mux. The health endpoint
// is registered separately so it can stay outside the auth guard.
func (h *MirrorHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sync", h.Sync)
	mux.HandleFunc("GET /api/tree", h.Tree)
	mux.HandleFunc("GET /api/node", h.Node)
	mux.HandleFunc("GET /api/snapshots", h.Snapshots)
	mux.HandleFunc("GET /api/snapshots/latest", h.LatestSnapshot)
}

// Sync triggers a full fetch-and-rebuild against the device.
func (h *MirrorHandler) Sync(w http.ResponseWriter, r *http.Request) {
	result, err := h.mirror.Sync(r.Context())
	if err != nil {
		h.logger.Error("sync failed", "error", err)
		respondDomainError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}

// Tree returns the nested projection of the whole mirror.
func (h *MirrorHandler) Tree(w http.ResponseWriter, r *http.Request) {
	projection, err := h.mirror.Tree()
	if err != nil {
		respondDomainError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, projection)
}

// Node resolves one path, e.g. /api/node?path=Document/Reader/books.
func (h *MirrorHandler) Node(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		httputil.RespondError(w, http.StatusBadRequest, "query parameter 'path' is required")
		return
	}

	node, err := h.mirror.NodeByPath(path)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, newNodeResponse(node))
}

// Snapshots lists archived device listings, newest first.
func (h *MirrorHandler) Snapshots(w http.ResponseWriter, r *http.Request) {
	limit := config.DefaultSnapshotListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httputil.RespondError(w, http.StatusBadRequest, "query parameter 'limit' must be a positive integer")
			return
		}
		limit = min(parsed, config.MaxSnapshotListLimit)
	}

	snapshots, err := h.mirror.Snapshots(r.Context(), limit)
	if err != nil {
		h.logger.Error("snapshot listing failed", "error", err)
		respondDomainError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"snapshots": snapshots,
	})
}

// LatestSnapshot returns the most recent archived listing with its raw
// records, for comparing the mirror against what the device reported.
func (h *MirrorHandler) LatestSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.mirror.LatestSnapshot(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, snapshot)
}

// Health reports liveness plus the last successful sync, if any.
func (h *MirrorHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"last_sync": h.mirror.LastSync(),
	})
}

// nodeResponse is the JSON projection of one node. Absent fields render
// as null; the parent link becomes a path instead of a cycle.
type nodeResponse struct {
	Path        string        `json:"path"`
	Name        *string       `json:"name"`
	Type        *string       `json:"type"`
	ID          *string       `json:"id"`
	CreatedDate *time.Time    `json:"created_date"`
	IsNew       *bool         `json:"is_new"`
	ParentPath  *string       `json:"parent_path"`
	Placeholder bool          `json:"placeholder"`
	Folder      *folderMeta   `json:"folder,omitempty"`
	Document    *documentMeta `json:"document,omitempty"`
}

type folderMeta struct {
	DocumentSource *string `json:"document_source"`
	ParentFolderID *string `json:"parent_folder_id"`
}

type documentMeta struct {
	Author       *string    `json:"author"`
	DocumentType *string    `json:"document_type"`
	FileRevision *string    `json:"file_revision"`
	MimeType     *string    `json:"mime_type"`
	Title        *string    `json:"title"`
	ModifiedDate *time.Time `json:"modified_date"`
	CurrentPage  *int       `json:"current_page"`
	TotalPage    *int       `json:"total_page"`
	FileSize     *int64     `json:"file_size"`
}

func newNodeResponse(node *models.Node) *nodeResponse {
	resp := &nodeResponse{
		Path:        node.EntryPath,
		Name:        node.EntryName,
		Type:        node.EntryType,
		ID:          node.EntryID,
		CreatedDate: node.CreatedDate,
		IsNew:       node.IsNew,
		Placeholder: node.IsPlaceholder(),
	}
	if node.Parent != nil {
		resp.ParentPath = &node.Parent.EntryPath
	}
	if node.Folder != nil {
		resp.Folder = &folderMeta{
			DocumentSource: node.Folder.DocumentSource,
			ParentFolderID: node.Folder.ParentFolderID,
		}
	}
	if node.Document != nil {
		resp.Document = &documentMeta{
			Author:       node.Document.Author,
			DocumentType: node.Document.DocumentType,
			FileRevision: node.Document.FileRevision,
			MimeType:     node.Document.MimeType,
			Title:        node.Document.Title,
			ModifiedDate: node.Document.ModifiedDate,
			CurrentPage:  node.Document.CurrentPage,
			TotalPage:    node.Document.TotalPage,
			FileSize:     node.Document.FileSize,
		}
	}
	return resp
}
