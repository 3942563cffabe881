package feed

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/julianstephens/weekcal/internal/logger"
	"github.com/julianstephens/weekcal/internal/metrics"
	"github.com/julianstephens/weekcal/internal/validation"
)

// RoutePattern is the mux pattern the feed is served under.
const RoutePattern = "GET /feed/{token}"

const (
	maxIdleLimiters = 1024
	limiterIdleTTL  = 10 * time.Minute
)

type HandlerOptions struct {
	// RateLimit is requests per second per token; zero disables limiting.
	RateLimit float64
	Burst     int
}

type tokenLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Handler serves GET /feed/{token}[.ics]?start=YYYY-MM-DD&days=N.
type Handler struct {
	publisher *Publisher
	metrics   *metrics.Collector

	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*tokenLimiter
}

func NewHandler(p *Publisher, m *metrics.Collector, opts HandlerOptions) *Handler {
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Handler{
		publisher: p,
		metrics:   m,
		limit:     limit,
		burst:     burst,
		limiters:  make(map[string]*tokenLimiter),
	}
}

// Register mounts the handler on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle(RoutePattern, h)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSuffix(r.PathValue("token"), ".ics")

	start := r.URL.Query().Get("start")
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.fail(w, http.StatusBadRequest, "invalid days: "+raw)
			return
		}
		days = n
	}

	ctx := r.Context()
	record, err := h.publisher.Authorize(ctx, token)
	if err != nil {
		logger.Warn("Feed request rejected", "remote", r.RemoteAddr)
		h.fail(w, http.StatusUnauthorized, ErrUnauthorized.Error())
		return
	}

	if !h.allow(record.Hash) {
		w.Header().Set("Retry-After", "1")
		h.fail(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	resp, err := h.publisher.Document(ctx, start, days)
	if err != nil {
		if errors.Is(err, validation.ErrInvalid) {
			h.fail(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error("Feed render failed", "error", err)
		h.fail(w, http.StatusInternalServerError, "failed to render feed")
		return
	}

	for k, v := range resp.Header() {
		w.Header()[k] = v
	}
	if match := r.Header.Get("If-None-Match"); match != "" && etagMatches(match, resp.ETag) {
		h.metrics.RecordFeedRequest(http.StatusNotModified)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	h.metrics.RecordFeedRequest(http.StatusOK)
	logger.Debug("Feed served", "token", ShortHash(record.Hash), "revision", resp.Revision, "sequence", resp.Sequence)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(resp.Body))
}

func (h *Handler) fail(w http.ResponseWriter, code int, msg string) {
	h.metrics.RecordFeedRequest(code)
	http.Error(w, msg, code)
}

func (h *Handler) allow(key string) bool {
	if h.limit == rate.Inf {
		return true
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	tl, ok := h.limiters[key]
	if !ok {
		if len(h.limiters) >= maxIdleLimiters {
			for k, v := range h.limiters {
				if now.Sub(v.lastSeen) > limiterIdleTTL {
					delete(h.limiters, k)
				}
			}
		}
		tl = &tokenLimiter{limiter: rate.NewLimiter(h.limit, h.burst)}
		h.limiters[key] = tl
	}
	tl.lastSeen = now
	return tl.limiter.Allow()
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
