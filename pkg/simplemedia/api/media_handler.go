package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/simple-media/pkg/simplemedia"
)

// MediaHandler handles HTTP requests for media assets using pkg/simplemedia
type MediaHandler struct {
	service simplemedia.Service
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(service simplemedia.Service) *MediaHandler {
	return &MediaHandler{service: service}
}

// Routes returns the routes for media
func (h *MediaHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/upload-credentials", h.RequestUploadCredential)
	r.Post("/finalize", h.FinalizeUpload)
	r.Post("/upload", h.UploadMedia)

	r.Get("/{id}", h.GetAsset)
	r.Delete("/{id}", h.Deactivate)
	r.Put("/{id}/display-order", h.SetDisplayOrder)

	r.Get("/subjects/{subjectID}", h.ListBySubject)
	r.Post("/subjects/{subjectID}/logo", h.ReplaceLogo)

	return r
}

// UploadCredentialRequest is the request body for minting an upload credential
type UploadCredentialRequest struct {
	SubjectID         string `json:"subject_id"`
	Category          string `json:"category"`
	ContentType       string `json:"content_type"`
	DeclaredSizeBytes int64  `json:"declared_size_bytes"`
}

// UploadCredentialResponse is the response body for an upload credential
type UploadCredentialResponse struct {
	UploadURL string    `json:"upload_url"`
	ObjectKey string    `json:"object_key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// FinalizeRequest is the request body for finalizing a direct upload
type FinalizeRequest struct {
	ObjectKey    string `json:"object_key"`
	SubjectID    string `json:"subject_id"`
	Category     string `json:"category"`
	OriginalName string `json:"original_name"`
	MimeType     string `json:"mime_type"`
	SizeBytes    int64  `json:"size_bytes"`
	DisplayOrder int    `json:"display_order"`
	Replace      bool   `json:"replace"`
}

// AssetResponse is the response body for a media asset
type AssetResponse struct {
	ID               string                `json:"id"`
	SubjectID        string                `json:"subject_id"`
	Category         string                `json:"category"`
	ObjectKey        string                `json:"object_key"`
	PublicURL        string                `json:"public_url,omitempty"`
	OriginalName     string                `json:"original_name"`
	MimeType         string                `json:"mime_type"`
	SizeBytes        int64                 `json:"size_bytes"`
	Width            *int                  `json:"width,omitempty"`
	Height           *int                  `json:"height,omitempty"`
	DisplayOrder     int                   `json:"display_order"`
	IsActive         bool                  `json:"is_active"`
	ProcessingStatus string                `json:"processing_status"`
	Variants         []simplemedia.Variant `json:"variants,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

func toAssetResponse(asset *simplemedia.MediaAsset) AssetResponse {
	return AssetResponse{
		ID:               asset.ID.String(),
		SubjectID:        asset.SubjectID.String(),
		Category:         string(asset.Category),
		ObjectKey:        asset.ObjectKey,
		PublicURL:        asset.PublicURL,
		OriginalName:     asset.OriginalName,
		MimeType:         asset.MimeType,
		SizeBytes:        asset.SizeBytes,
		Width:            asset.Width,
		Height:           asset.Height,
		DisplayOrder:     asset.DisplayOrder,
		IsActive:         asset.IsActive,
		ProcessingStatus: string(asset.ProcessingStatus),
		Variants:         asset.Variants,
		CreatedAt:        asset.CreatedAt,
		UpdatedAt:        asset.UpdatedAt,
	}
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, simplemedia.ErrAssetNotFound),
		errors.Is(err, simplemedia.ErrObjectNotFound):
		status = http.StatusNotFound
	case errors.Is(err, simplemedia.ErrActiveLogoExists):
		status = http.StatusConflict
	case errors.Is(err, simplemedia.ErrInvalidCategory),
		errors.Is(err, simplemedia.ErrInvalidContentType),
		errors.Is(err, simplemedia.ErrInvalidProcessingStatus),
		errors.Is(err, simplemedia.ErrAssetNotActive):
		status = http.StatusBadRequest
	case errors.Is(err, simplemedia.ErrUploadTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, simplemedia.ErrCredentialExpired):
		status = http.StatusForbidden
	}

	if status == http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "error", err)
	}
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": err.Error()})
}

// RequestUploadCredential mints a presigned upload credential
func (h *MediaHandler) RequestUploadCredential(w http.ResponseWriter, r *http.Request) {
	var req UploadCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	subjectID, err := uuid.Parse(req.SubjectID)
	if err != nil {
		http.Error(w, "Invalid subject ID", http.StatusBadRequest)
		return
	}

	cred, err := h.service.RequestUploadCredential(r.Context(), simplemedia.RequestUploadCredentialRequest{
		SubjectID:         subjectID,
		Category:          simplemedia.MediaCategory(req.Category),
		ContentType:       req.ContentType,
		DeclaredSizeBytes: req.DeclaredSizeBytes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, UploadCredentialResponse{
		UploadURL: cred.UploadURL,
		ObjectKey: cred.ObjectKey,
		ExpiresAt: cred.ExpiresAt,
	})
}

// FinalizeUpload registers a directly uploaded object and enqueues processing
func (h *MediaHandler) FinalizeUpload(w http.ResponseWriter, r *http.Request) {
	var req FinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	subjectID, err := uuid.Parse(req.SubjectID)
	if err != nil {
		http.Error(w, "Invalid subject ID", http.StatusBadRequest)
		return
	}

	asset, err := h.service.FinalizeUpload(r.Context(), simplemedia.FinalizeUploadRequest{
		ObjectKey:    req.ObjectKey,
		SubjectID:    subjectID,
		Category:     simplemedia.MediaCategory(req.Category),
		OriginalName: req.OriginalName,
		MimeType:     req.MimeType,
		SizeBytes:    req.SizeBytes,
		DisplayOrder: req.DisplayOrder,
		Replace:      req.Replace,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("upload finalized", "media_id", asset.ID.String(), "category", asset.Category)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toAssetResponse(asset))
}

// UploadMedia accepts a multipart upload, stores the object and registers it
func (h *MediaHandler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	subjectID, err := uuid.Parse(r.FormValue("subject_id"))
	if err != nil {
		http.Error(w, "Invalid subject ID", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	displayOrder := 0
	if v := r.FormValue("display_order"); v != "" {
		displayOrder, err = strconv.Atoi(v)
		if err != nil {
			http.Error(w, "Invalid display order", http.StatusBadRequest)
			return
		}
	}

	mimeType := r.FormValue("mime_type")
	if mimeType == "" {
		mimeType = header.Header.Get("Content-Type")
	}

	asset, err := h.service.UploadMedia(r.Context(), simplemedia.UploadMediaRequest{
		SubjectID:    subjectID,
		Category:     simplemedia.MediaCategory(r.FormValue("category")),
		OriginalName: header.Filename,
		ContentType:  mimeType,
		SizeBytes:    header.Size,
		DisplayOrder: displayOrder,
		Replace:      r.FormValue("replace") == "true",
		Reader:       file,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("media uploaded", "media_id", asset.ID.String(), "category", asset.Category)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toAssetResponse(asset))
}

// GetAsset retrieves a media asset by ID
func (h *MediaHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid media ID", http.StatusBadRequest)
		return
	}

	asset, err := h.service.GetAsset(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, toAssetResponse(asset))
}

// ListBySubject lists the active assets of a subject in display order
func (h *MediaHandler) ListBySubject(w http.ResponseWriter, r *http.Request) {
	subjectID, err := uuid.Parse(chi.URLParam(r, "subjectID"))
	if err != nil {
		http.Error(w, "Invalid subject ID", http.StatusBadRequest)
		return
	}

	var category *simplemedia.MediaCategory
	if v := r.URL.Query().Get("category"); v != "" {
		c := simplemedia.MediaCategory(v)
		if !c.IsValid() {
			http.Error(w, "Invalid category", http.StatusBadRequest)
			return
		}
		category = &c
	}

	assets, err := h.service.ListBySubject(r.Context(), simplemedia.ListBySubjectRequest{
		SubjectID: subjectID,
		Category:  category,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]AssetResponse, 0, len(assets))
	for _, asset := range assets {
		resp = append(resp, toAssetResponse(asset))
	}
	render.JSON(w, r, resp)
}

// Deactivate soft-deletes a media asset
func (h *MediaHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid media ID", http.StatusBadRequest)
		return
	}

	if err := h.service.Deactivate(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	render.NoContent(w, r)
}

// ReplaceLogoRequest is the request body for swapping the active logo
type ReplaceLogoRequest struct {
	MediaID string `json:"media_id"`
}

// ReplaceLogo atomically makes the given asset the subject's only active logo
func (h *MediaHandler) ReplaceLogo(w http.ResponseWriter, r *http.Request) {
	subjectID, err := uuid.Parse(chi.URLParam(r, "subjectID"))
	if err != nil {
		http.Error(w, "Invalid subject ID", http.StatusBadRequest)
		return
	}

	var req ReplaceLogoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	mediaID, err := uuid.Parse(req.MediaID)
	if err != nil {
		http.Error(w, "Invalid media ID", http.StatusBadRequest)
		return
	}

	if err := h.service.ReplaceLogo(r.Context(), subjectID, mediaID); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("logo replaced", "subject_id", subjectID.String(), "media_id", mediaID.String())
	render.NoContent(w, r)
}

// SetDisplayOrderRequest is the request body for reordering an asset
type SetDisplayOrderRequest struct {
	DisplayOrder int `json:"display_order"`
}

// SetDisplayOrder updates the ordering position of an asset
func (h *MediaHandler) SetDisplayOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid media ID", http.StatusBadRequest)
		return
	}

	var req SetDisplayOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.SetDisplayOrder(r.Context(), id, req.DisplayOrder); err != nil {
		writeError(w, r, err)
		return
	}

	render.NoContent(w, r)
}
