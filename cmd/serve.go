package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/internal/enrich"
	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/internal/store"
	"github.com/Mantyl-ai/mantyl-sequence-generator-sub000/pkg/enrichapi"
)

var servePort int

// phoneWebhook is the payload enrichment providers POST when numbers come
// back. Providers re-deliver on their side's retries; the store is
// last-write-wins per key so duplicates collapse.
type phoneWebhook struct {
	SessionID string                  `json:"session_id"`
	Provider  string                  `json:"provider,omitempty"`
	Records   []enrichapi.PhoneRecord `json:"records"`
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the enrichment webhook receiver and status endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		kv, err := store.Open(ctx, cfg.Store.Driver, storeDSN())
		if err != nil {
			return err
		}
		defer kv.Close()
		if err := kv.Migrate(ctx); err != nil {
			return err
		}

		recordTTL := time.Duration(cfg.Enrich.RecordTTLMins) * time.Minute
		srv := newEnrichServer(kv, recordTTL)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		httpSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: srv.router(),
		}

		g, ctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})

		g.Go(func() error {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		})

		// Periodic sweep of expired records.
		g.Go(func() error {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					n, err := kv.DeleteExpired(ctx)
					if err != nil {
						zap.L().Warn("expiry sweep failed", zap.Error(err))
						continue
					}
					if n > 0 {
						zap.L().Info("swept expired records", zap.Int("deleted", n))
					}
				}
			}
		})

		return g.Wait()
	},
}

// enrichServer accumulates webhook-delivered phone records per session and
// serves them back to pollers.
type enrichServer struct {
	kv        store.Store
	recordTTL time.Duration
	ingest    *rate.Limiter
	log       *zap.Logger
}

func newEnrichServer(kv store.Store, recordTTL time.Duration) *enrichServer {
	return &enrichServer{
		kv:        kv,
		recordTTL: recordTTL,
		// Providers burst on batch completion; cap sustained ingest without
		// rejecting an honest burst.
		ingest: rate.NewLimiter(rate.Limit(50), 100),
		log:    zap.L().With(zap.String("component", "enrich_server")),
	}
}

func (s *enrichServer) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/webhook/phone", s.handlePhoneWebhook)
	r.Get("/enrich/status/{session}", s.handleStatus)

	return r
}

func (s *enrichServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *enrichServer) handlePhoneWebhook(w http.ResponseWriter, r *http.Request) {
	if !s.ingest.Allow() {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "ingest rate exceeded"})
		return
	}

	var payload phoneWebhook
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if payload.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session_id is required"})
		return
	}

	stored := 0
	for _, rec := range payload.Records {
		if rec.Provider == "" {
			rec.Provider = payload.Provider
		}
		if rec.ReceivedAt.IsZero() {
			rec.ReceivedAt = time.Now().UTC()
		}

		keys := enrich.RecordKeys(rec)
		if len(keys) == 0 {
			s.log.Warn("record carries no matchable identity, dropped",
				zap.String("session", payload.SessionID),
			)
			continue
		}

		value, err := json.Marshal(rec)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "encode record"})
			return
		}

		// One record, indexed under every identity a poller might probe.
		for _, key := range keys {
			if err := s.kv.Set(r.Context(), sessionKey(payload.SessionID, key), value, s.recordTTL); err != nil {
				s.log.Error("store write failed", zap.String("key", key), zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "store write failed"})
				return
			}
		}
		stored++
	}

	s.log.Info("webhook ingested",
		zap.String("session", payload.SessionID),
		zap.String("provider", payload.Provider),
		zap.Int("records", stored),
	)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":  "accepted",
		"records": stored,
	})
}

func (s *enrichServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	session := chi.URLParam(r, "session")

	entries, err := s.kv.List(r.Context(), sessionKey(session, ""))
	if err != nil {
		s.log.Error("status list failed", zap.String("session", session), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "store read failed"})
		return
	}

	records := make(map[string]enrichapi.PhoneRecord, len(entries))
	for key, value := range entries {
		var rec enrichapi.PhoneRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			s.log.Warn("skipping undecodable record", zap.String("key", key))
			continue
		}
		records[stripSession(session, key)] = rec
	}

	writeJSON(w, http.StatusOK, enrichapi.StatusResponse{
		Records:    records,
		TotalCount: len(records),
		Status:     "partial",
	})
}

// sessionKey namespaces a record key to one enrichment session.
func sessionKey(session, key string) string {
	return session + "|" + key
}

func stripSession(session, key string) string {
	return strings.TrimPrefix(key, session+"|")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func storeDSN() string {
	if cfg.Store.Driver == "postgres" {
		return cfg.Store.DatabaseURL
	}
	return cfg.Store.Path
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
