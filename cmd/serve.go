package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/geology-tools/ls4sm/internal/model"
	"github.com/geology-tools/ls4sm/internal/pipeline"
	"github.com/geology-tools/ls4sm/internal/zoning"
)

var (
	servePort  int
	serveRules string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the classification HTTP server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		classifier, _, err := initClassifier(serveRules)
		if err != nil {
			return err
		}

		limiter := rate.NewLimiter(rate.Limit(cfg.Server.RatePerSecond), cfg.Server.RateBurst)
		router := newRouter(classifier, cfg.Classify.Workers, limiter)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}

		return runServer(ctx, srv)
	},
}

const shutdownTimeout = 10 * time.Second

// runServer serves until ctx is cancelled, then shuts down gracefully.
// Shutdown runs on a fresh context so in-flight requests drain.
func runServer(ctx context.Context, srv *http.Server) error {
	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.L().Error("server shutdown", zap.Error(err))
		}
	}()

	zap.L().Info("starting server", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}

	return nil
}

func newRouter(classifier *zoning.Classifier, workers int, limiter *rate.Limiter) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))
	if limiter != nil {
		r.Use(rateLimit(limiter))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/v1/classify", handleClassify(classifier))
	r.Post("/v1/classify/batch", handleClassifyBatch(classifier, workers))

	return r
}

func rateLimit(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func handleClassify(classifier *zoning.Classifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			IL    float64 `json:"il"`
			Slope float64 `json:"slope"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		zone, err := classifier.Classify(req.IL, req.Slope)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, zone)
		case eris.Is(err, zoning.ErrInvalidInput):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case eris.Is(err, zoning.ErrUnclassified):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		default:
			zap.L().Error("classify request failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		}
	}
}

func handleClassifyBatch(classifier *zoning.Classifier, workers int) http.HandlerFunc {
	engine := pipeline.New(classifier, workers)

	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Sites []model.Site `json:"sites"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if len(req.Sites) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "sites is required"})
			return
		}

		outcomes, counts, err := engine.Run(r.Context(), req.Sites)
		if err != nil {
			zap.L().Error("batch classify failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}

		results := make([]model.Result, len(outcomes))
		for i, o := range outcomes {
			results[i] = o.Result()
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"counts":  counts,
			"results": results,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveRules, "rules", "", "custom rule table (YAML)")
	rootCmd.AddCommand(serveCmd)
}
