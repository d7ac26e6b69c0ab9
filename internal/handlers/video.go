package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"clipforge/internal/models"
	"clipforge/internal/pipeline"
	"clipforge/internal/platform"
	"clipforge/internal/storage"
)

// defaultPlatforms is used when the upload form omits the platforms field.
var defaultPlatforms = []string{"tiktok", "instagram", "facebook"}

var allowedExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
}

// VideoHandler handles video upload and processing HTTP requests.
type VideoHandler struct {
	contents     *storage.ContentRepository
	variants     *storage.VariantRepository
	orchestrator *pipeline.Orchestrator
	status       *pipeline.StatusService
	registry     *platform.Registry
	dataDir      string
}

// NewVideoHandler creates a new VideoHandler.
func NewVideoHandler(
	contents *storage.ContentRepository,
	variants *storage.VariantRepository,
	orchestrator *pipeline.Orchestrator,
	status *pipeline.StatusService,
	registry *platform.Registry,
	dataDir string,
) *VideoHandler {
	return &VideoHandler{
		contents:     contents,
		variants:     variants,
		orchestrator: orchestrator,
		status:       status,
		registry:     registry,
		dataDir:      dataDir,
	}
}

// UploadResponse is returned as soon as the upload is admitted; the
// pipeline keeps running after the response is sent.
type UploadResponse struct {
	ContentID    string `json:"content_id"`
	VideoURL     string `json:"video_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	Status       string `json:"status"`
	Message      string `json:"message"`
}

// Upload admits a video for platform processing.
// POST /api/videos/upload
func (h *VideoHandler) Upload(c echo.Context) error {
	ctx := c.Request().Context()

	userID := c.Request().Header.Get("X-User-ID")
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing principal"})
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing video file"})
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid video format: " + ext})
	}

	platforms, err := h.parsePlatforms(c.FormValue("platforms"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	title := c.FormValue("title")
	if title == "" {
		title = "Untitled Video"
	}

	contentID := uuid.New().String()

	inputPath, err := h.saveUpload(file, contentID, ext)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to save upload"})
	}

	content := &models.Content{
		ID:           contentID,
		UserID:       userID,
		Title:        title,
		Status:       models.ContentStatusProcessing,
		Platforms:    platforms,
		VideoURL:     "/original/" + filepath.Base(inputPath),
		ThumbnailURL: "/thumbnails/" + contentID + "_thumb.jpg",
	}
	if err := h.contents.Create(ctx, content); err != nil {
		os.Remove(inputPath)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create content record"})
	}

	h.orchestrator.Start(contentID, inputPath, platforms)

	return c.JSON(http.StatusOK, UploadResponse{
		ContentID:    contentID,
		VideoURL:     content.VideoURL,
		ThumbnailURL: content.ThumbnailURL,
		Status:       models.ContentStatusProcessing,
		Message:      "Video uploaded, processing started",
	})
}

// Status returns the current processing snapshot for a content id.
// GET /api/videos/status/:id
func (h *VideoHandler) Status(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	snapshot, err := h.status.Query(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, snapshot)
}

// Variants lists the persisted platform variants for a content id.
// GET /api/videos/variants/:id
func (h *VideoHandler) Variants(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	userID := c.Request().Header.Get("X-User-ID")

	content, err := h.contents.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if content == nil || content.UserID != userID {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "content not found"})
	}

	variants, err := h.variants.ListByContentID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	result := make([]map[string]interface{}, 0, len(variants))
	for _, v := range variants {
		name := v.Platform
		if p, ok := h.registry.Lookup(v.Platform); ok {
			name = p.Name
		}
		result = append(result, map[string]interface{}{
			"id":            v.ID,
			"platform":      v.Platform,
			"platform_name": name,
			"video_url":     v.VideoURL,
			"thumbnail_url": v.ThumbnailURL,
			"width":         v.Width,
			"height":        v.Height,
			"status":        v.Status,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"variants": result})
}

func (h *VideoHandler) parsePlatforms(raw string) ([]string, error) {
	if raw == "" {
		return defaultPlatforms, nil
	}
	var platforms []string
	if err := json.Unmarshal([]byte(raw), &platforms); err != nil {
		return nil, fmt.Errorf("invalid platforms field: %v", err)
	}
	if len(platforms) == 0 {
		return nil, fmt.Errorf("no target platforms given")
	}
	if err := h.registry.Validate(platforms); err != nil {
		return nil, err
	}
	return platforms, nil
}

func (h *VideoHandler) saveUpload(file *multipart.FileHeader, contentID, ext string) (string, error) {
	dir := filepath.Join(h.dataDir, "original")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	destPath := filepath.Join(dir, contentID+ext)
	dest, err := os.Create(destPath)
	if err != nil {
		return "", err
	}
	defer dest.Close()

	if _, err := io.Copy(dest, src); err != nil {
		os.Remove(destPath)
		return "", err
	}
	return destPath, nil
}
