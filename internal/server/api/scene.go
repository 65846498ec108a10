package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/gesturetree/internal/photo"
	"github.com/ayusman/gesturetree/internal/scene"
)

// SceneHandler serves GET /api/state and POST /api/mode.
type SceneHandler struct {
	state   *scene.State
	machine *scene.Machine
}

func NewSceneHandler(state *scene.State, machine *scene.Machine) *SceneHandler {
	return &SceneHandler{state: state, machine: machine}
}

func (h *SceneHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/state":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		writeJSON(w, http.StatusOK, h.state.Snapshot())
	case "/api/mode":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.setMode(w, r)
	default:
		http.NotFound(w, r)
	}
}

type modeRequest struct {
	Mode scene.Mode `json:"mode"`
}

// setMode is the debug FORM/EXPLODE toggle. PHOTO_ZOOM can only be reached
// by gesture.
func (h *SceneHandler) setMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if _, err := h.machine.Force(req.Mode); err != nil {
		if errors.Is(err, scene.ErrInvalidMode) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to set mode")
		return
	}

	writeJSON(w, http.StatusOK, h.state.Snapshot())
}

// CameraControl reads and replaces the renderer camera.
type CameraControl interface {
	Camera() photo.Camera
	SetCamera(photo.Camera) error
}

// CameraHandler serves GET and POST /api/camera.
type CameraHandler struct {
	camera CameraControl
}

func NewCameraHandler(c CameraControl) *CameraHandler {
	return &CameraHandler{camera: c}
}

func (h *CameraHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.camera.Camera())
	case http.MethodPost:
		var c photo.Camera
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := c.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := h.camera.SetCamera(c); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save camera")
			return
		}
		writeJSON(w, http.StatusOK, c)
	default:
		methodNotAllowed(w)
	}
}
