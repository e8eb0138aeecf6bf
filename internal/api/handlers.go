package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"soniccluster/internal/library"
)

// maxUploadMemory bounds how much of a multipart body is held in RAM before
// spilling to disk.
const maxUploadMemory = 32 << 20

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(v)
}

// handleUpload accepts a multipart batch of audio files under the "files"
// field, enqueues them and starts an analysis pass. Oversize files are
// skipped with a warning rather than failing the batch.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		http.Error(w, "invalid multipart request", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	var uploads []library.Upload
	for _, fh := range r.MultipartForm.File["files"] {
		f, err := fh.Open()
		if err != nil {
			http.Error(w, "unreadable file part", http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			http.Error(w, "unreadable file part", http.StatusBadRequest)
			return
		}
		uploads = append(uploads, library.Upload{
			Name:     fh.Filename,
			MIMEType: fh.Header.Get("Content-Type"),
			Data:     data,
		})
	}
	if len(uploads) == 0 {
		http.Error(w, "no files", http.StatusBadRequest)
		return
	}

	added, rejected := s.lib.Add(uploads)
	log.Printf("Upload: %d accepted, %d rejected", len(added), len(rejected))
	if len(added) > 0 {
		s.analyze()
	}

	resp := map[string]any{"added": added}
	if len(rejected) > 0 {
		resp["rejected"] = rejected
		resp["warning"] = fmt.Sprintf("Skipped %d file(s) larger than %dMB.",
			len(rejected), s.lib.MaxBytes()/(1024*1024))
	}
	writeJSON(w, resp)
}

func (s *Server) handleTracks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET required", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]any{"tracks": s.lib.Tracks()})
}

// handleRemove deletes a track. If it is the active selection, playback is
// torn down first so the staged payload is released.
func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if s.player.Status().TrackID == req.ID {
		s.player.Close()
	}
	if !s.lib.Remove(req.ID) {
		http.Error(w, "unknown track", http.StatusNotFound)
		return
	}
	s.Recluster()
	writeJSON(w, map[string]any{"ok": true})
}

// handleSelect starts (or toggles) playback of a track.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	tr, ok := s.lib.Get(req.ID)
	if !ok {
		http.Error(w, "unknown track", http.StatusNotFound)
		return
	}
	s.player.Select(tr)
	writeJSON(w, map[string]any{"ok": true, "player": s.player.Status()})
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Position float64 `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	s.player.Seek(req.Position)
	writeJSON(w, map[string]any{"ok": true, "player": s.player.Status()})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	drainBody(r)
	s.player.Close()
	writeJSON(w, map[string]any{"ok": true})
}

func (s *Server) handleClusters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET required", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]any{"k": s.K(), "clusters": s.clusterSnapshot()})
}

// handleSetK changes the cluster count and re-partitions immediately.
// Out-of-range values are clamped, never rejected.
func (s *Server) handleSetK(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		K int `json:"k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.k = clampK(req.K)
	s.mu.Unlock()
	s.Recluster()

	writeJSON(w, map[string]any{"ok": true, "k": s.K(), "clusters": s.clusterSnapshot()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET required", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.statusSnapshot())
}

// statusSnapshot is the shared payload for /api/status and the websocket.
func (s *Server) statusSnapshot() map[string]any {
	tracks := s.lib.Tracks()
	counts := map[library.Status]int{}
	for _, t := range tracks {
		counts[t.Status]++
	}

	snap := map[string]any{
		"total":     len(tracks),
		"idle":      counts[library.StatusIdle],
		"analyzing": counts[library.StatusAnalyzing],
		"completed": counts[library.StatusCompleted],
		"errored":   counts[library.StatusError],
		"running":   s.analyzer.Running(),
		"k":         s.K(),
		"clusters":  s.clusterSnapshot(),
		"player":    s.player.Status(),
	}
	if s.broadcaster != nil {
		snap["http_listeners"] = s.broadcaster.ListenerCount()
	}
	if s.webrtc != nil {
		snap["webrtc_listeners"] = s.webrtc.PeerCount()
	}
	return snap
}
