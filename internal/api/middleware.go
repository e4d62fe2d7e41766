package api

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// requestLogger logs one line per request with the chi request ID.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		zap.L().Info("api: request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// requireAdmin guards admin routes with a bearer token. With no token
// configured the routes are disabled.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AdminToken == "" {
			respondError(w, http.StatusForbidden, "admin API disabled")
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AdminToken)) != 1 {
			respondError(w, http.StatusUnauthorized, "invalid admin token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

const (
	// maxLimiterClients bounds the number of tracked client buckets.
	maxLimiterClients = 10000
	// limiterIdleTTL is how long an unused bucket is kept.
	limiterIdleTTL    = 10 * time.Minute
)

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// clientLimiter keeps one token bucket per client address. At most
// maxClients buckets are tracked: when full, idle buckets are dropped, then
// the least recently seen one.
type clientLimiter struct {
	mu         sync.Mutex
	rps        rate.Limit
	burst      int
	maxClients int
	idleTTL    time.Duration
	now        func() time.Time
	clients    map[string]*limiterEntry
}

func newClientLimiter(rps float64, burst int) *clientLimiter {
	if rps <= 0 {
		rps = 2
	}
	if burst < 1 {
		burst = 1
	}
	// An evicted bucket must already have refilled.
	idle := limiterIdleTTL
	if refill := time.Duration(float64(burst) / rps * float64(time.Second)); refill > idle {
		idle = refill
	}
	return &clientLimiter{
		rps:        rate.Limit(rps),
		burst:      burst,
		maxClients: maxLimiterClients,
		idleTTL:    idle,
		now:        time.Now,
		clients:    make(map[string]*limiterEntry),
	}
}

func (l *clientLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.clients[key]; ok {
		e.lastSeen = now
		return e.lim
	}
	if len(l.clients) >= l.maxClients {
		l.evict(now)
	}
	e := &limiterEntry{lim: rate.NewLimiter(l.rps, l.burst), lastSeen: now}
	l.clients[key] = e
	return e.lim
}

// evict drops idle buckets, or the least recently seen one when none is
// idle. Callers hold l.mu.
func (l *clientLimiter) evict(now time.Time) {
	var oldestKey string
	var oldest time.Time
	for k, e := range l.clients {
		if now.Sub(e.lastSeen) >= l.idleTTL {
			delete(l.clients, k)
			continue
		}
		if oldestKey == "" || e.lastSeen.Before(oldest) {
			oldestKey, oldest = k, e.lastSeen
		}
	}
	if len(l.clients) >= l.maxClients {
		delete(l.clients, oldestKey)
	}
}

func (l *clientLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *clientLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.get(clientKey(r)).Allow() {
			w.Header().Set("Retry-After", "1")
			respondError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey is the client host from RemoteAddr. Forwarded headers only
// reach it when the server trusts a proxy to set them.
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
