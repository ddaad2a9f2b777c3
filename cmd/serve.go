package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bizlens/internal/dashboard"
	"github.com/sells-group/bizlens/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initService(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(ctx, env, cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		env.Service.Wait()
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// buildRouter mounts the API. Background fetches started by PUT /api/params
// run on ctx rather than the request context.
func buildRouter(ctx context.Context, env *appEnv, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, env.Service.Store().Snapshot())
		})

		r.Put("/params", func(w http.ResponseWriter, r *http.Request) {
			p, ok := decodeParams(w, r)
			if !ok {
				return
			}
			env.Service.Submit(ctx, p)
			writeJSON(w, http.StatusAccepted, map[string]string{
				"status": "accepted",
				"key":    model.NewRequestKey(p).String(),
			})
		})

		r.Post("/competitors", operationHandler(env, model.OpCompetitors))
		r.Post("/trends", operationHandler(env, model.OpTrends))
		r.Post("/analysis", operationHandler(env, model.OpAnalysis))

		r.Get("/notifications", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, env.Feed.Recent())
		})
		r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, env.Service.Status())
		})
	})

	return r
}

// operationHandler runs op synchronously. ?refresh=true supersedes any
// fetch in flight; otherwise a duplicate or overlapping request is skipped.
func operationHandler(env *appEnv, op model.Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := decodeParams(w, r)
		if !ok {
			return
		}

		var out dashboard.Outcome
		if r.URL.Query().Get("refresh") == "true" {
			out = env.Service.Refresh(r.Context(), op, p)
		} else {
			out = env.Service.Fetch(r.Context(), op, p)
		}

		if out.Skipped {
			writeJSON(w, http.StatusAccepted, map[string]any{"skipped": true, "operation": op})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"outcome": out,
			"state":   env.Service.Store().Snapshot(),
		})
	}
}

func decodeParams(w http.ResponseWriter, r *http.Request) (model.Params, bool) {
	var p model.Params
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return p, false
	}
	return p, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("write response", zap.Error(err))
	}
}
