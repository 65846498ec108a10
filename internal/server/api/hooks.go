package api

import (
	"log"
	"net/http"

	"github.com/ayusman/gesturetree/internal/hook"
)

// HookHandler serves GET /api/hooks and POST /api/hooks/reload.
type HookHandler struct {
	manager *hook.Manager
}

func NewHookHandler(manager *hook.Manager) *HookHandler {
	return &HookHandler{manager: manager}
}

type hookResponse struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Modes       []string `json:"modes"`
}

type listHooksResponse struct {
	Dir   string         `json:"dir"`
	Hooks []hookResponse `json:"hooks"`
}

func (h *HookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/hooks":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.list(w)
	case "/api/hooks/reload":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		if err := h.manager.Discover(); err != nil {
			log.Printf("Failed to reload hooks: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to reload hooks")
			return
		}
		h.list(w)
	default:
		http.NotFound(w, r)
	}
}

func (h *HookHandler) list(w http.ResponseWriter) {
	hooks := h.manager.List()
	response := listHooksResponse{
		Dir:   h.manager.Dir(),
		Hooks: make([]hookResponse, 0, len(hooks)),
	}
	for _, hk := range hooks {
		modes := hk.Manifest.Modes
		if modes == nil {
			modes = []string{}
		}
		response.Hooks = append(response.Hooks, hookResponse{
			Name:        hk.Manifest.Name,
			Version:     hk.Manifest.Version,
			Description: hk.Manifest.Description,
			Modes:       modes,
		})
	}
	writeJSON(w, http.StatusOK, response)
}
