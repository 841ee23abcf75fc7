package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Error messages
const (
	ErrInternalServer  = "Internal server error"
	ErrInvalidFormat   = "Invalid format"
	ErrStoreUnreadable = "Store unreadable"
)

type requestIDKey struct{}

// Feed serves read-only views of guild ledgers over HTTP
type Feed struct {
	store  Store
	auth   *FeedAuth
	logger *zap.Logger
	now    func() time.Time
}

// NewFeed returns a feed over store; auth may be nil
func NewFeed(store Store, auth *FeedAuth, logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{store: store, auth: auth, logger: logger, now: time.Now}
}

// Router builds the HTTP routes
func (f *Feed) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Route("/api/guilds/{guildID}", func(r chi.Router) {
		r.Use(f.auth.Require)
		r.Get("/ddays", f.handleList)
		r.Get("/download", f.handleDownload)
		r.Get("/subscribe.ics", f.handleSubscribe)
	})
	return r
}

// Serve runs the feed on addr until ctx is cancelled
func (f *Feed) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           f.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		f.logger.Info("Starting calendar feed", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// handleList returns the guild's countdowns as JSON
func (f *Feed) handleList(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	ledger, ok := f.loadLedger(w, r, guildID)
	if !ok {
		return
	}
	f.write(w, r, "application/json; charset=utf-8", "", func(buf *bytes.Buffer) error {
		return GenerateJSON(buf, guildID, ledger, f.now())
	})
}

// handleDownload exports the guild's D-days as an attachment
// Query param: format (ics, csv or json)
func (f *Feed) handleDownload(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	format := r.URL.Query().Get("format")

	var contentType string
	switch format {
	case FormatICS:
		contentType = "text/calendar; charset=utf-8"
	case FormatCSV:
		contentType = "text/csv; charset=utf-8"
	case FormatJSON:
		contentType = "application/json; charset=utf-8"
	default:
		http.Error(w, ErrInvalidFormat, http.StatusBadRequest)
		return
	}

	ledger, ok := f.loadLedger(w, r, guildID)
	if !ok {
		return
	}
	disposition := fmt.Sprintf("attachment; filename=dday_%s.%s", guildID, format)
	f.write(w, r, contentType, disposition, func(buf *bytes.Buffer) error {
		return Export(buf, format, guildID, ledger, f.now())
	})
}

// handleSubscribe returns an ICS subscription feed (inline, no attachment header)
func (f *Feed) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	ledger, ok := f.loadLedger(w, r, guildID)
	if !ok {
		return
	}
	f.write(w, r, "text/calendar; charset=utf-8", "", func(buf *bytes.Buffer) error {
		return GenerateICS(buf, guildID, ledger, true)
	})
}

func (f *Feed) loadLedger(w http.ResponseWriter, r *http.Request, guildID string) (Ledger, bool) {
	ledger, err := f.store.LoadLedger(r.Context(), guildID)
	if err != nil {
		f.logger.Error("Error loading ledger",
			zap.String("guild", guildID),
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.Error(err))
		msg := ErrInternalServer
		if errors.Is(err, ErrCorruptStore) {
			msg = ErrStoreUnreadable
		}
		http.Error(w, msg, http.StatusInternalServerError)
		return nil, false
	}
	return ledger, true
}

// write renders into a buffer first so a failed render still yields a clean 500
func (f *Feed) write(w http.ResponseWriter, r *http.Request, contentType, disposition string, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		f.logger.Error("Error rendering response",
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.Error(err))
		http.Error(w, ErrInternalServer, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	if disposition != "" {
		w.Header().Set("Content-Disposition", disposition)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		f.logger.Warn("Error writing response", zap.Error(err))
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// RequestIDFromContext returns the id assigned by the request id middleware
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
