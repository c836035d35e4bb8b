package settings

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the options page endpoints under /api/settings.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Route("/api/settings", func(r chi.Router) {
		r.Get("/", handleGet(store))
		r.Put("/", handlePut(store))
		r.Put("/enabled", handleSetEnabled(store))
	})
}

func handleGet(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := store.Load(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, st.Masked())
	}
}

func handlePut(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in Settings
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		current, err := store.Load(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		// A key echoed back from GET in masked form means "unchanged".
		if in.GeminiAPIKey != "" && in.GeminiAPIKey == maskKey(current.GeminiAPIKey) {
			in.GeminiAPIKey = current.GeminiAPIKey
		}
		if in.OpenAIAPIKey != "" && in.OpenAIAPIKey == maskKey(current.OpenAIAPIKey) {
			in.OpenAIAPIKey = current.OpenAIAPIKey
		}

		if err := store.Save(r.Context(), in); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		saved, err := store.Load(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, saved.Masked())
	}
}

func handleSetEnabled(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Enabled bool `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if err := store.SetEnabled(r.Context(), in.Enabled); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"enabled": in.Enabled})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
