package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AA-Fatima/599-cal/internal/model"
	"github.com/AA-Fatima/599-cal/internal/pipeline"
	"github.com/AA-Fatima/599-cal/internal/refstore"
)

var servePort int

// queryHandler answers calorie queries. The pipeline always produces an
// outcome, so the endpoint only fails on malformed requests.
type queryHandler interface {
	HandleRequest(ctx context.Context, req pipeline.Request) model.Outcome
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the calorie query HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env.Pipeline, env.Store, cfg.Server.CORSOrigins),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(context.Background())
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(h queryHandler, missing refstore.MissingLog, corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/calculate", handleCalculate(h))
	r.Get("/api/missing", handleListMissing(missing))

	return r
}

func handleCalculate(h queryHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query         string                `json:"query"`
			SessionID     string                `json:"session_id"`
			Modifications model.ModificationSet `json:"modifications"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if req.Query == "" {
			http.Error(w, `{"error":"query is required"}`, http.StatusBadRequest)
			return
		}
		if req.SessionID == "" {
			req.SessionID = uuid.NewString()
		}

		outcome := h.HandleRequest(r.Context(), pipeline.Request{
			Query:         req.Query,
			SessionID:     req.SessionID,
			Modifications: req.Modifications,
		})

		writeJSON(w, http.StatusOK, struct {
			SessionID string `json:"session_id"`
			model.Outcome
		}{SessionID: req.SessionID, Outcome: outcome})
	}
}

func handleListMissing(missing refstore.MissingLog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if s := r.URL.Query().Get("limit"); s != "" {
			if _, err := fmt.Sscanf(s, "%d", &limit); err != nil || limit <= 0 {
				http.Error(w, `{"error":"invalid limit"}`, http.StatusBadRequest)
				return
			}
		}

		entries, err := missing.ListMissing(r.Context(), limit)
		if err != nil {
			zap.L().Error("list missing queries failed", zap.Error(err))
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		if entries == nil {
			entries = []model.MissingQuery{}
		}

		writeJSON(w, http.StatusOK, map[string]any{"missing": entries})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
