package arena

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/KirkDiggler/cyber-arena/internal/entities"
	"github.com/KirkDiggler/cyber-arena/internal/errors"
	"github.com/KirkDiggler/cyber-arena/internal/services/progress"
)

// ProgressResponse is the body of GET /api/progress/{player}
type ProgressResponse struct {
	PlayerID      string                     `json:"player_id"`
	Experience    entities.ExperienceRecord  `json:"experience"`
	Title         string                     `json:"title"`
	LevelProgress int                        `json:"level_progress"`
	Snapshot      *entities.ProgressSnapshot `json:"snapshot,omitempty"`
	Lab           *entities.LabProgress      `json:"lab,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewRouter routes the websocket endpoint and the small JSON API. Progress
// may be nil, in which case the progress route is not served.
func NewRouter(hub *Hub, progressService progress.Service) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", hub.ServeWS)
	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/rooms", func(w http.ResponseWriter, req *http.Request) {
		rooms, err := hub.ListRooms(req.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
	}).Methods(http.MethodGet)

	if progressService != nil {
		r.HandleFunc("/api/progress/{player}", func(w http.ResponseWriter, req *http.Request) {
			playerID := mux.Vars(req)["player"]
			out, err := progressService.GetProgress(req.Context(), &progress.GetProgressInput{PlayerID: playerID})
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, ProgressResponse{
				PlayerID:      playerID,
				Experience:    out.Experience,
				Title:         out.Title,
				LevelProgress: out.Progress,
				Snapshot:      out.Snapshot,
				Lab:           out.Lab,
			})
		}).Methods(http.MethodGet)
	}
	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "code", code, "error", err)
	}
	writeJSON(w, status, errorResponse{Code: code.String(), Message: errors.GetMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}
