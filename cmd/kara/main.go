package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/inagotable26/kara/internal/config"
	"github.com/inagotable26/kara/internal/imagegen"
	"github.com/inagotable26/kara/internal/karaoke"
	"github.com/inagotable26/kara/internal/ollama"
	"github.com/inagotable26/kara/internal/player"
	"github.com/inagotable26/kara/internal/stream"
	"github.com/inagotable26/kara/internal/web"
)

// background is the current stage backdrop, shared by the UI endpoints.
type background struct {
	mu   sync.Mutex
	url  string
	kind string // "image" or "video"
}

func (b *background) set(url, kind string) {
	b.mu.Lock()
	b.url, b.kind = url, kind
	b.mu.Unlock()
}

func (b *background) get() (string, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.url, b.kind
}

func main() {
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Println("kara starting up...")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("data dir: %v", err)
	}

	// Playback clock: decodes tracks and paces PCM frames in real time.
	p := player.New()
	go p.Run(ctx)

	// Broadcaster: fan-out PCM frames to all monitor listeners
	broadcaster := stream.NewBroadcaster()
	go broadcaster.Run(ctx, p.Frames())

	webrtcHandler := stream.NewWebRTCHandler(broadcaster)

	// Lyric sync session driven by player events
	session := karaoke.NewSession(p)
	session.SetOffset(cfg.SyncOffset)
	go session.Run(ctx)

	// Ollama LLM (optional -- generates timestamped lyrics on demand)
	var lyricsGen *ollama.LyricsGenerator
	if cfg.OllamaURL != "" {
		ollamaClient := ollama.NewClient(cfg.OllamaURL, cfg.OllamaModel)

		readyCtx, readyCancel := context.WithTimeout(ctx, 30*time.Second)
		if ollamaClient.WaitForReady(readyCtx) {
			lyricsGen = ollama.NewLyricsGenerator(ollamaClient, cfg.OllamaEscalateModel)
			log.Printf("Ollama connected: %s (lyric generation enabled)", cfg.OllamaModel)
		} else {
			log.Println("Ollama not available, lyric generation disabled")
		}
		readyCancel()
	} else {
		log.Println("Ollama not configured (set OLLAMA_URL to enable lyric generation)")
	}

	// Image generation (optional -- renders stage backdrops from prompts)
	var images *imagegen.Client
	if cfg.ImageAPIURL != "" {
		images = imagegen.NewClient(cfg.ImageAPIURL, cfg.ImageAPIKey, cfg.DataDir)
		log.Printf("Image API configured: %s", cfg.ImageAPIURL)
	}

	bg := &background{}

	// HTTP routes
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

	// Audio monitor streams
	mux.Handle("/stream", stream.NewHTTPHandler(broadcaster))
	mux.Handle("/offer", webrtcHandler)

	// Uploaded tracks and generated backdrops
	mux.Handle("/media/", http.StripPrefix("/media/", http.FileServer(http.Dir(cfg.DataDir))))

	mux.HandleFunc("/api/track", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		defer file.Close()

		ext := strings.ToLower(filepath.Ext(header.Filename))
		if ext != ".mp3" && ext != ".wav" {
			http.Error(w, "only .mp3 and .wav tracks are supported", http.StatusBadRequest)
			return
		}

		id := uuid.NewString()
		path := filepath.Join(cfg.DataDir, id+ext)
		out, err := os.Create(path)
		if err != nil {
			http.Error(w, "saving track failed", http.StatusInternalServerError)
			return
		}
		if _, err := io.Copy(out, file); err != nil {
			out.Close()
			os.Remove(path)
			http.Error(w, "saving track failed", http.StatusInternalServerError)
			return
		}
		out.Close()

		name := strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
		p.Load(player.TrackInfo{ID: id, Name: name, Path: path})
		log.Printf("Track uploaded: %s (%s)", name, id)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "id": id, "name": name})
	})

	mux.HandleFunc("/api/lyrics", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"text":  session.Lyrics(),
				"lines": session.Lines(),
			})
		case http.MethodPost:
			var req struct {
				Text string `json:"text"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid request", http.StatusBadRequest)
				return
			}
			session.SetLyrics(ctx, req.Text)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"ok": true, "lines": len(session.Lines())})
		default:
			http.Error(w, "GET or POST required", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/lyrics/generate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		if lyricsGen == nil {
			http.Error(w, "lyric generation not configured", http.StatusServiceUnavailable)
			return
		}
		var req struct {
			Title  string `json:"title"`
			Artist string `json:"artist"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		text, err := lyricsGen.Generate(r.Context(), req.Title, req.Artist)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		session.SetLyrics(ctx, text)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "lines": len(session.Lines())})
	})

	mux.HandleFunc("/api/play", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		if err := p.Play(); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	mux.HandleFunc("/api/pause", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		p.Pause()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	mux.HandleFunc("/api/seek", func(w http.ResponseWriter, r *http.Request) {
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
		p.Seek(req.Position)
		session.Tick(p.Position())
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "position": p.Position()})
	})

	mux.HandleFunc("/api/offset", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Offset float64 `json:"offset"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		session.SetOffset(req.Offset)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "offset": session.Offset()})
	})

	mux.HandleFunc("/api/rate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Rate float64 `json:"rate"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		session.SetRate(req.Rate)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "rate": p.Rate()})
	})

	mux.HandleFunc("/api/mode", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Marquee bool `json:"marquee"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		session.SetMarquee(req.Marquee)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "marquee": req.Marquee})
	})

	mux.HandleFunc("/api/background", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			url, kind := bg.get()
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"url": url, "type": kind})
		case http.MethodPost:
			var req struct {
				Prompt string `json:"prompt"`
				URL    string `json:"url"`
				Type   string `json:"type"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid request", http.StatusBadRequest)
				return
			}
			switch {
			case req.URL != "":
				kind := req.Type
				if kind != "video" {
					kind = "image"
				}
				bg.set(req.URL, kind)
			case strings.HasPrefix(req.Prompt, "http://"), strings.HasPrefix(req.Prompt, "https://"):
				kind := "image"
				if strings.HasSuffix(strings.ToLower(req.Prompt), ".mp4") || strings.HasSuffix(strings.ToLower(req.Prompt), ".webm") {
					kind = "video"
				}
				bg.set(req.Prompt, kind)
			case req.Prompt != "":
				if images == nil {
					http.Error(w, "image generation not configured", http.StatusServiceUnavailable)
					return
				}
				name, err := images.Generate(r.Context(), req.Prompt)
				if err != nil {
					http.Error(w, err.Error(), http.StatusBadGateway)
					return
				}
				bg.set("/media/"+name, "image")
			default:
				http.Error(w, "prompt or url required", http.StatusBadRequest)
				return
			}
			url, kind := bg.get()
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"ok": true, "url": url, "type": kind})
		default:
			http.Error(w, "GET or POST required", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/sync", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		json.NewEncoder(w).Encode(session.Sync())
	})

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		track := p.Track()
		st := session.Sync()

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		json.NewEncoder(w).Encode(map[string]any{
			"track_id":         track.ID,
			"track_name":       track.Name,
			"state":            st.State,
			"position":         st.Position,
			"duration":         st.Duration,
			"offset":           st.Offset,
			"rate":             st.Rate,
			"line_count":       st.LineCount,
			"http_listeners":   broadcaster.ListenerCount(),
			"webrtc_listeners": webrtcHandler.PeerCount(),
		})
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		server.Close()
	}()

	log.Printf("kara live on %s", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("HTTP server error: %v", err)
	}
}
