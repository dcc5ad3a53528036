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

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/email-finder/internal/finder"
	"github.com/sells-group/email-finder/internal/model"
	"github.com/sells-group/email-finder/internal/verify"
)

// searcher is the part of finder.Finder the server needs.
type searcher interface {
	Search(ctx context.Context, req finder.Request) (*model.SearchResult, error)
	Rescore(records []model.EmailRecord) ([]model.EmailRecord, error)
}

// verifyRequest accepts at most 50 addresses per call.
type verifyRequest struct {
	Addresses []string `json:"addresses" validate:"required,min=1,max=50,dive,required"`
}

type rescoreRequest struct {
	Records []model.EmailRecord `json:"records" validate:"required,min=1"`
}

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP search server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initFinder(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		mux := buildMux(env.Finder, env.Verifier, cfg.SMTP.MaxConcurrent)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// buildMux wires the HTTP routes. v may be nil, in which case /v1/verify
// answers 503.
func buildMux(s searcher, v verify.Verifier, concurrency int) *http.ServeMux {
	validate := validator.New()
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /v1/search", func(w http.ResponseWriter, r *http.Request) {
		var req finder.Request
		if !decodeRequest(w, r, validate, &req) {
			return
		}
		res, err := s.Search(r.Context(), req)
		switch {
		case errors.Is(err, model.ErrEmptyDomain), errors.Is(err, model.ErrEmptyName):
			writeError(w, http.StatusBadRequest, err.Error())
			return
		case err != nil:
			zap.L().Error("search failed", zap.String("domain", req.Domain), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "search failed")
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	mux.HandleFunc("POST /v1/verify", func(w http.ResponseWriter, r *http.Request) {
		if v == nil {
			writeError(w, http.StatusServiceUnavailable, "verification is not configured")
			return
		}
		var req verifyRequest
		if !decodeRequest(w, r, validate, &req) {
			return
		}
		writeJSON(w, http.StatusOK, verifyAddresses(r.Context(), v, concurrency, req.Addresses))
	})

	mux.HandleFunc("POST /v1/rescore", func(w http.ResponseWriter, r *http.Request) {
		var req rescoreRequest
		if !decodeRequest(w, r, validate, &req) {
			return
		}
		out, err := s.Rescore(req.Records)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, out)
	})

	return mux
}

// decodeRequest parses and validates a JSON body, answering 400 itself on
// failure.
func decodeRequest(w http.ResponseWriter, r *http.Request, validate *validator.Validate, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
