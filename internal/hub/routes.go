package hub

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/ewriter/internal/settings"
	"github.com/ziadkadry99/ewriter/internal/translate"
)

// RegisterWebsocket mounts the page websocket. It must not sit behind a
// request timeout since connections live as long as the page.
func RegisterWebsocket(r chi.Router, h *Hub) {
	r.Get("/ws", h.ServeWS)
}

// RegisterRoutes mounts the tab command API.
func RegisterRoutes(r chi.Router, h *Hub) {
	r.Route("/api/tabs", func(r chi.Router) {
		r.Get("/", h.handleListTabs)
		r.Post("/{id}/translate-selection", h.handleTranslateSelection)
		r.Post("/{id}/toggle", h.handleToggle)
	})
	r.Post("/api/translate", h.handleTranslate)
}

func (h *Hub) handleListTabs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Tabs())
}

func (h *Hub) handleTranslateSelection(w http.ResponseWriter, r *http.Request) {
	res, err := h.TranslateSelection(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeTabError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Hub) handleToggle(w http.ResponseWriter, r *http.Request) {
	enabled, err := h.ToggleEnabled(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeTabError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": enabled})
}

type translateBody struct {
	Text  string `json:"text"`
	Style string `json:"style"`
}

func (h *Hub) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var body translateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req := translate.Request{Text: body.Text}
	if body.Style != "" {
		s, err := settings.ParseStyle(body.Style)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		req.Style = &s
	}

	writeJSON(w, http.StatusOK, h.translator.Translate(r.Context(), req))
}

func writeTabError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, ErrUnknownTab) {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
