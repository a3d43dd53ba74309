package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"hotelbooking/internal/apperrors"
	"hotelbooking/internal/config"
	"hotelbooking/internal/domain"
	"hotelbooking/internal/metrics"

	"github.com/rs/zerolog"
)

// HTTPServer is the JSON boundary of the booking service.
type HTTPServer struct {
	cfg     config.APIConfig
	svc     domain.BookingService
	server  *http.Server
	auth    *HTTPAuth
	logger  zerolog.Logger
	devMode bool
}

func NewHTTPServer(cfg config.APIConfig, app config.AppConfig, svc domain.BookingService, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:     cfg,
		svc:     svc,
		auth:    NewHTTPAuth(cfg),
		logger:  logger.With().Str("component", "http").Logger(),
		devMode: app.IsDevelopment(),
	}

	api := http.NewServeMux()
	srv.route(api, "POST /api/v1/bookings", permWriteBookings, srv.handleCreateBooking)
	srv.route(api, "GET /api/v1/bookings/{id}", permReadBookings, srv.handleGetBooking)
	srv.route(api, "PATCH /api/v1/bookings/{id}/dates", permWriteBookings, srv.handleUpdateDates)
	srv.route(api, "POST /api/v1/bookings/{id}/cancel", permWriteBookings, srv.handleCancel)
	srv.route(api, "POST /api/v1/bookings/{id}/check-in", permWriteBookings, srv.handleCheckIn)
	srv.route(api, "POST /api/v1/bookings/{id}/check-out", permWriteBookings, srv.handleCheckOut)
	srv.route(api, "GET /api/v1/guests/{id}/bookings", permReadBookings, srv.handleGuestBookings)
	srv.route(api, "GET /api/v1/rooms/available", permReadRooms, srv.handleAvailableRooms)
	srv.route(api, "PUT /api/v1/rooms/{id}/status", permWriteRooms, srv.handleSetRoomStatus)
	srv.route(api, "GET /api/v1/arrivals", permReadBookings, srv.handleArrivals)
	srv.route(api, "GET /api/v1/departures", permReadBookings, srv.handleDepartures)
	srv.route(api, "GET /api/v1/audit", permReadAudit, srv.handleAudit)

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	root.Handle("/api/", srv.auth.Wrap(api))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.loggingMiddleware(root),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) route(mux *http.ServeMux, pattern, permission string, h http.HandlerFunc) {
	guarded := s.auth.Require(permission, h)
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		metrics.IncHTTP(pattern)
		guarded(w, r)
	})
}

// Handler exposes the routed handler, middleware included.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		event := s.logger.Info()
		if recorder.status >= http.StatusInternalServerError {
			event = s.logger.Error()
		}
		event.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// writeServiceError maps the error taxonomy onto status codes. Internal
// errors are logged in full and reported generically outside development.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *apperrors.ValidationError
		notFound   *apperrors.NotFoundError
		conflict   *apperrors.ConflictError
		domainErr  *apperrors.DomainError
	)

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validation.Message, Field: validation.Field})
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &conflict):
		writeError(w, http.StatusConflict, conflict.Message)
	case errors.As(err, &domainErr):
		writeError(w, http.StatusBadRequest, domainErr.Message)
	default:
		s.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		msg := "internal error"
		if s.devMode {
			msg = err.Error()
		}
		writeError(w, http.StatusInternalServerError, msg)
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorResponse{Error: message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
