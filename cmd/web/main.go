package main

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/devraulu/tabseek/pkg/app"
	"github.com/devraulu/tabseek/pkg/config"
	"github.com/devraulu/tabseek/pkg/logger"
	"github.com/devraulu/tabseek/pkg/omnibox"
)

//go:embed templates/*
var templates embed.FS

var tmpl *template.Template

func main() {
	path := config.DefaultPath()
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal(err)
	}

	flush := logger.InitLogger(cfg)
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	funcMap := template.FuncMap{
		"safeHTML": func(s string) template.HTML { return template.HTML(s) },
	}
	tmpl = template.Must(template.New("").Funcs(funcMap).ParseFS(templates, "templates/*.html"))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", handleIndex)
	mux.HandleFunc("POST /session", handleSession(a.Controller))
	mux.HandleFunc("GET /suggest", handleSuggest(a.Controller))
	mux.HandleFunc("POST /commit", handleCommit(a.Controller))
	mux.HandleFunc("POST /cancel", handleCancel(a.Controller))

	addr := "127.0.0.1:8080"
	if v := os.Getenv("TABSEEK_ADDR"); v != "" {
		addr = v
	}
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("starting web server", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("web server failed", slog.Any("err", err))
	}
	slog.Info("shutdown complete")
}

func handleIndex(w http.ResponseWriter, r *http.Request) {
	slog.Info("request", "method", r.Method, "path", r.URL.Path)
	if err := tmpl.ExecuteTemplate(w, "index.html", nil); err != nil {
		slog.Error("render failed", slog.Any("err", err))
	}
}

func handleSession(c *omnibox.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := c.Start(r.Context())
		writeJSON(w, map[string]string{"session": id})
	}
}

// handleSuggest answers with the latest update for q. Keystrokes superseded
// by a newer request get an empty 204.
func handleSuggest(c *omnibox.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")

		var (
			last omnibox.Update
			got  bool
		)
		c.Changed(r.Context(), query, func(u omnibox.Update) {
			last, got = u, true
		})

		if !got || last.Loading {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		slog.Info("suggest", slog.String("query", query), slog.Int("suggestions", len(last.Suggestions)))
		if r.URL.Query().Get("format") == "html" {
			if err := tmpl.ExecuteTemplate(w, "results.html", last); err != nil {
				slog.Error("render failed", slog.Any("err", err))
			}
			return
		}
		writeJSON(w, last)
	}
}

func handleCommit(c *omnibox.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		text := r.URL.Query().Get("text")
		a := c.Entered(r.Context(), text)
		writeJSON(w, a)
	}
}

func handleCancel(c *omnibox.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.Cancelled()
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", slog.Any("err", err))
	}
}
