package restserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 100
	cacheMaxAge         = 5
)

// Handlers contains the HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	logger     *zap.SugaredLogger
}

func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{controller: ctrl, logger: ctrl.logger}
}

// GetLatest returns the most recent update.
func (h *Handlers) GetLatest(w http.ResponseWriter, req *http.Request) {
	rec, ok := h.controller.memory.Latest()
	if !ok {
		h.writeError(w, http.StatusNotFound, "no mass balance update yet")
		return
	}
	h.writeJSON(w, http.StatusOK, toUpdateResponse(rec))
}

// GetHistory returns up to ?limit= most recent updates, oldest first.
func (h *Handlers) GetHistory(w http.ResponseWriter, req *http.Request) {
	limit := defaultHistoryLimit
	if v := req.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.writeError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = n
	}

	records := h.controller.memory.History(limit)
	out := make([]UpdateResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toUpdateResponse(rec))
	}
	h.writeJSON(w, http.StatusOK, out)
}

// GetGrid returns the latest balance field.
func (h *Handlers) GetGrid(w http.ResponseWriter, req *http.Request) {
	g := h.controller.memory.LatestGrid()
	rec, ok := h.controller.memory.Latest()
	if g == nil || !ok {
		h.writeError(w, http.StatusNotFound, "no mass balance grid yet")
		return
	}

	rows, cols := g.Dims()
	resp := GridResponse{
		Year:  rec.Year,
		Rows:  rows,
		Cols:  cols,
		Units: "m ice eq. / y",
		Data:  make([][]float64, rows),
	}
	for i := 0; i < rows; i++ {
		resp.Data[i] = g.RawRowView(i)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// GetHealth reports sink health; 503 when any sink's last store failed.
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	resp := HealthResponse{Status: "healthy"}
	status := http.StatusOK
	if hm := h.controller.health; hm != nil {
		resp.Sinks = hm.GetAllHealth()
		if !hm.IsHealthy() {
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}
	h.writeJSON(w, status, resp)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Cache-Control", "max-age="+strconv.Itoa(cacheMaxAge))
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Errorf("error encoding JSON response: %v", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
