package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"zombie-horde/internal/horde"

	"github.com/go-chi/chi/v5"
)

// maxBodyBytes bounds request bodies; every payload here is tiny.
const maxBodyBytes = 4 << 10

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	// Prefer the published tick copy; it never touches the engine lock.
	var snap horde.Snapshot
	if !h.engine.LatestSnapshot(&snap) {
		snap = h.engine.Snapshot()
	}
	writeJSON(w, &snap)
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, struct {
		horde.Stats
		RateLimit RateLimitStats `json:"rateLimit"`
	}{h.engine.Stats(), h.rateLimiter.Stats()})
}

func (h *routerHandlers) handlePlayerPosition(w http.ResponseWriter, r *http.Request) {
	var req struct {
		X *float64 `json:"x"`
		Z *float64 `json:"z"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.X == nil || req.Z == nil {
		writeError(w, "x and z are required", http.StatusBadRequest)
		return
	}

	h.engine.SetPlayerPosition(horde.Vec3{X: *req.X, Z: *req.Z})
	p := h.engine.PlayerPosition()
	writeJSON(w, map[string]any{"success": true, "x": p.X, "z": p.Z})
}

func (h *routerHandlers) handleDamage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, "Invalid entity id", http.StatusBadRequest)
		return
	}

	var req struct {
		Damage   int    `json:"damage"`
		Source   string `json:"source"`
		Headshot bool   `json:"headshot"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	src, ok := horde.ParseSource(req.Source)
	if !ok {
		writeError(w, "source must be \"player\" or \"ally\"", http.StatusBadRequest)
		return
	}
	if req.Damage < 0 {
		writeError(w, "damage cannot be negative", http.StatusBadRequest)
		return
	}

	res := h.engine.ApplyDamage(horde.EntityID(id), horde.Hit{
		Damage:   req.Damage,
		Source:   src,
		Headshot: req.Headshot,
	})
	writeJSON(w, res)
}

func (h *routerHandlers) handleResetWave(w http.ResponseWriter, r *http.Request) {
	log.Printf("🔄 Wave reset requested via API from %s", GetClientIP(r))
	h.engine.ResetWave()
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleMinimap(w http.ResponseWriter, r *http.Request) {
	size := 0
	if v := r.URL.Query().Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, "size must be an integer", http.StatusBadRequest)
			return
		}
		size = n
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	ok, err := h.minimap.WriteLatestPNG(w, h.engine, size)
	if !ok && err == nil {
		// Nothing published yet; draw the current state.
		snap := h.engine.Snapshot()
		err = h.minimap.WritePNG(w, &snap, size)
	}
	if err != nil {
		log.Printf("❌ Minimap render failed: %v", err)
	}
}

// decodeBody decodes a JSON body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return false
	}
	return true
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
