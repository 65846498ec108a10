package api

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/gesturetree/internal/store"
)

const (
	// MaxUploadSize bounds one upload request.
	MaxUploadSize = 64 << 20
	// uploadField is the multipart field holding the images.
	uploadField = "photo"
)

// Library adds and removes photos across the store and the running scene.
type Library interface {
	AddPhoto(p *store.Photo, data []byte) error
	RemovePhoto(id string) error
}

// PhotoHandler handles HTTP requests for photo resources.
type PhotoHandler struct {
	store   *store.Store
	library Library
}

// NewPhotoHandler creates a PhotoHandler. Reads go to the store directly,
// writes go through library so the scene sees them.
func NewPhotoHandler(s *store.Store, library Library) *PhotoHandler {
	return &PhotoHandler{store: s, library: library}
}

// ServeHTTP routes /api/photos, /api/photos/{id} and /api/photos/{id}/image.
func (h *PhotoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/photos")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.upload(w, r)
		default:
			methodNotAllowed(w)
		}
		return
	}

	id, rest, _ := strings.Cut(path, "/")
	switch {
	case rest == "image" && r.Method == http.MethodGet:
		h.image(w, r, id)
	case rest != "":
		http.NotFound(w, r)
	case r.Method == http.MethodGet:
		h.get(w, r, id)
	case r.Method == http.MethodDelete:
		h.delete(w, r, id)
	default:
		methodNotAllowed(w)
	}
}

type photoResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	URL         string  `json:"url"`
	ContentType string  `json:"content_type"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
	Size        int64   `json:"size"`
	CreatedAt   string  `json:"created_at"`
}

type listPhotosResponse struct {
	Photos []photoResponse `json:"photos"`
}

// ImageURL is where the renderer loads a photo's image from.
func ImageURL(id string) string {
	return "/api/photos/" + id + "/image"
}

func toResponse(p *store.Photo) photoResponse {
	return photoResponse{
		ID:          p.ID,
		Name:        p.Name,
		URL:         ImageURL(p.ID),
		ContentType: p.ContentType,
		Width:       p.Width,
		Height:      p.Height,
		AspectRatio: p.AspectRatio(),
		Size:        p.Size,
		CreatedAt:   p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// list handles GET /api/photos.
func (h *PhotoHandler) list(w http.ResponseWriter, r *http.Request) {
	photos, err := h.store.Photos().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list photos")
		return
	}

	response := listPhotosResponse{Photos: make([]photoResponse, 0, len(photos))}
	for _, p := range photos {
		response.Photos = append(response.Photos, toResponse(p))
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *PhotoHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.store.Photos().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Photo not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get photo")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(p))
}

// image serves the stored bytes. Ids are never reused, so the response is
// cacheable forever.
func (h *PhotoHandler) image(w http.ResponseWriter, r *http.Request, id string) {
	contentType, data, err := h.store.Photos().Image(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Photo not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load image")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

type upload struct {
	photo *store.Photo
	data  []byte
}

// upload handles POST /api/photos. Every file is checked before any is
// stored, so a bad file rejects the whole request. If storing fails part
// way, the photos stored so far are removed again.
func (h *PhotoHandler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File[uploadField]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("No %q files in request", uploadField))
		return
	}

	uploads := make([]upload, 0, len(files))
	for _, fh := range files {
		u, err := readUpload(fh)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		uploads = append(uploads, u)
	}

	response := listPhotosResponse{Photos: make([]photoResponse, 0, len(uploads))}
	for i, u := range uploads {
		if err := h.library.AddPhoto(u.photo, u.data); err != nil {
			log.Printf("add photo %s: %v", u.photo.Name, err)
			h.rollback(uploads[:i])
			writeError(w, http.StatusInternalServerError, "Failed to store photo")
			return
		}
		response.Photos = append(response.Photos, toResponse(u.photo))
	}

	writeJSON(w, http.StatusCreated, response)
}

// rollback removes photos already added by a failed upload.
func (h *PhotoHandler) rollback(added []upload) {
	for _, u := range added {
		if err := h.library.RemovePhoto(u.photo.ID); err != nil {
			log.Printf("roll back photo %s: %v", u.photo.ID, err)
		}
	}
}

// readUpload reads one file and decodes its image header for the format
// and size.
func readUpload(fh *multipart.FileHeader) (upload, error) {
	f, err := fh.Open()
	if err != nil {
		return upload{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return upload{}, fmt.Errorf("read %s: %w", fh.Filename, err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return upload{}, fmt.Errorf("%s is not a supported image", fh.Filename)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return upload{}, fmt.Errorf("%s has no pixels", fh.Filename)
	}

	return upload{
		photo: &store.Photo{
			ID:          uuid.New().String(),
			Name:        fh.Filename,
			ContentType: "image/" + format,
			Width:       cfg.Width,
			Height:      cfg.Height,
		},
		data: data,
	}, nil
}

func (h *PhotoHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.library.RemovePhoto(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Photo not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete photo")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
