package gomon

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v3"
)

type errorResponse struct {
	Error string `json:"error"`
}

// Handler exposes a repository over HTTP:
//
//	GET    /monitors          list all monitors (optional ?label= filter)
//	GET    /monitors/{label}  single monitor by label
//	DELETE /monitors          reset the registry
//
// The logger is used for request logging only and may be nil.
func Handler(repo *Repository, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS.Concise(true),
	}))

	r.Get("/monitors", func(w http.ResponseWriter, req *http.Request) {
		monitors := repo.GetAll()
		if label := req.URL.Query().Get("label"); label != "" {
			monitors = repo.Find(LabelEquals(label))
		}
		respondJSON(w, http.StatusOK, snapshots(monitors))
	})

	r.Get("/monitors/{label}", func(w http.ResponseWriter, req *http.Request) {
		label := chi.URLParam(req, "label")
		mon, err := repo.FindByLabel(label)
		switch {
		case errors.Is(err, ErrEmptyLabel):
			respondJSONError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrDuplicateLabel):
			respondJSONError(w, http.StatusConflict, err.Error())
		case err != nil:
			respondJSONError(w, http.StatusInternalServerError, err.Error())
		case mon == nil:
			respondJSONError(w, http.StatusNotFound, "no monitor with label "+label)
		default:
			respondJSON(w, http.StatusOK, mon.Stats())
		}
	})

	r.Delete("/monitors", func(w http.ResponseWriter, req *http.Request) {
		repo.Clear()
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}

func snapshots(monitors []*Monitor) []Stats {
	result := make([]Stats, 0, len(monitors))
	for _, mon := range monitors {
		result = append(result, mon.Stats())
	}
	return result
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondJSONError sends a JSON error response
func respondJSONError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}
