// Package api exposes the library, clustering and playback controls over
// HTTP, plus a websocket that pushes status snapshots to the UI.
package api

import (
	"context"
	"io"
	"log"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"soniccluster/internal/analysis"
	"soniccluster/internal/cluster"
	"soniccluster/internal/library"
	"soniccluster/internal/player"
	"soniccluster/internal/stream"
)

const (
	minClusters = 2
	maxClusters = 8
)

// Server wires the HTTP surface to the daemon's components. Cluster state
// (the configured k and the result of the last partition) lives here, guarded
// by mu.
type Server struct {
	ctx         context.Context
	lib         *library.Library
	analyzer    *analysis.Analyzer
	player      *player.Player
	broadcaster *stream.Broadcaster
	webrtc      *stream.WebRTCHandler

	mu       sync.Mutex
	k        int
	clusters []cluster.Cluster
	rng      *rand.Rand
}

// New creates the API server. k is clamped to the supported range. rng seeds
// the centroid draws; pass nil for a time-seeded source.
func New(ctx context.Context, lib *library.Library, analyzer *analysis.Analyzer,
	p *player.Player, b *stream.Broadcaster, webrtcHandler *stream.WebRTCHandler,
	k int, rng *rand.Rand) *Server {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	return &Server{
		ctx:         ctx,
		lib:         lib,
		analyzer:    analyzer,
		player:      p,
		broadcaster: b,
		webrtc:      webrtcHandler,
		k:           clampK(k),
		rng:         rng,
	}
}

func clampK(k int) int {
	if k < minClusters {
		return minClusters
	}
	if k > maxClusters {
		return maxClusters
	}
	return k
}

// Routes registers every API endpoint on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/upload", s.handleUpload)
	mux.HandleFunc("/api/tracks", s.handleTracks)
	mux.HandleFunc("/api/remove", s.handleRemove)
	mux.HandleFunc("/api/select", s.handleSelect)
	mux.HandleFunc("/api/seek", s.handleSeek)
	mux.HandleFunc("/api/stop", s.handleStop)
	mux.HandleFunc("/api/clusters", s.handleClusters)
	mux.HandleFunc("/api/k", s.handleSetK)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/ws", s.handleWS)
}

// Recluster re-partitions every analyzed track with the configured k and
// publishes the assignments back to the library. Called after each completed
// analysis and whenever k changes.
func (s *Server) Recluster() {
	s.mu.Lock()
	defer s.mu.Unlock()
	assignments, clusters := cluster.Partition(s.lib.Analyzed(), s.k, s.rng)
	s.lib.ApplyClusters(assignments)
	s.clusters = clusters
	log.Printf("Reclustered: %d tracks across %d clusters (k=%d)",
		len(assignments), len(clusters), s.k)
}

// K returns the configured cluster count.
func (s *Server) K() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.k
}

func (s *Server) clusterSnapshot() []cluster.Cluster {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]cluster.Cluster, len(s.clusters))
	copy(out, s.clusters)
	return out
}

// analyze kicks off a background analysis pass. No-op if one is already
// running; the completion hook triggers reclustering per track.
func (s *Server) analyze() {
	go s.analyzer.Run(s.ctx)
}

// drainBody discards any unread request body so the connection can be reused.
func drainBody(r *http.Request) {
	io.Copy(io.Discard, r.Body)
	r.Body.Close()
}
