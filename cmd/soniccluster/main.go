package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"soniccluster/internal/analysis"
	"soniccluster/internal/api"
	"soniccluster/internal/config"
	"soniccluster/internal/gemini"
	"soniccluster/internal/library"
	"soniccluster/internal/player"
	"soniccluster/internal/stream"
	"soniccluster/internal/web"
)

func main() {
	cfg := config.Load()
	if cfg.GeminiAPIKey == "" {
		log.Fatal("GEMINI_API_KEY is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Println("soniccluster starting up...")

	oracle, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.AnalysisModel, cfg.TTSModel, cfg.TTSVoice)
	if err != nil {
		log.Fatalf("Gemini client: %v", err)
	}

	lib := library.New(cfg.MaxFileMB)
	analyzer := analysis.New(lib, oracle)

	p := player.New(oracle, nil, cfg.TmpDir)
	go p.Run(ctx)

	// Broadcaster: fan out the player's PCM frames to all listeners
	broadcaster := stream.NewBroadcaster()
	go broadcaster.Run(ctx, p.Frames())

	webrtcHandler := stream.NewWebRTCHandler(broadcaster)

	srv := api.New(ctx, lib, analyzer, p, broadcaster, webrtcHandler, cfg.ClusterCount, nil)
	analyzer.SetUpdateFunc(srv.Recluster)

	mux := http.NewServeMux()

	// Web UI
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(web.IndexHTML)
	})

	// Audio streams
	mux.Handle("/stream", stream.NewHTTPHandler(broadcaster))
	mux.Handle("/offer", webrtcHandler)

	// API endpoints
	srv.Routes(mux)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		server.Close()
	}()

	log.Printf("soniccluster live on %s (model %s)", addr, cfg.AnalysisModel)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("HTTP server error: %v", err)
	}
}
