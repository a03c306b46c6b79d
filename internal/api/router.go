package api

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/folio/backend/internal/api/handlers"
	"github.com/wonny/folio/backend/pkg/logger"
)

// Handlers groups everything the router mounts
type Handlers struct {
	Health    *handlers.HealthHandler
	Scheduler *handlers.SchedulerHandler
	Events    *handlers.EventHub
	Market    *handlers.MarketHandler
	Metrics   bool // expose /metrics
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", h.Health.Health).Methods("GET")
	if h.Metrics {
		r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Scheduler control
	api.HandleFunc("/scheduler/status", h.Scheduler.Status).Methods("GET")
	api.HandleFunc("/scheduler/arm", h.Scheduler.Arm).Methods("POST")
	api.HandleFunc("/scheduler/disarm", h.Scheduler.Disarm).Methods("POST")
	api.HandleFunc("/scheduler/trigger", h.Scheduler.Trigger).Methods("POST")
	api.HandleFunc("/scheduler/trigger/{userID}", h.Scheduler.TriggerUser).Methods("POST")
	api.HandleFunc("/scheduler/runs", h.Scheduler.Runs).Methods("GET")
	if h.Events != nil {
		api.HandleFunc("/scheduler/events", h.Events.Stream).Methods("GET")
	}

	// Market data
	api.HandleFunc("/market/quote/{symbol}", h.Market.GetQuote).Methods("GET")
	api.HandleFunc("/market/quotes", h.Market.GetQuotes).Methods("GET")
	api.HandleFunc("/market/validate/{symbol}", h.Market.ValidateSymbol).Methods("GET")
	api.HandleFunc("/market/history/{symbol}", h.Market.GetHistory).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// statusRecorder captures the response code; Hijack keeps websocket upgrades working
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// loggingMiddleware logs HTTP requests and counts them per route
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			// Call next handler
			next.ServeHTTP(rec, r)

			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			duration := time.Since(start)
			httpRequestsCounter.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			httpDurationHist.WithLabelValues(r.Method, route).Observe(duration.Seconds())

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": duration,
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"error":"Internal server error"}`))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
