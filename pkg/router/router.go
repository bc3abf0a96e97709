package router

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type HandlerFunc func(http.ResponseWriter, *http.Request)

// Router matches METHOD:PATH routes. A "*" segment matches exactly one path
// segment; a trailing "**" matches the rest of the path. When several wildcard
// routes match, the one with the most literal segments wins.
type Router struct {
	mux    *http.ServeMux
	routes map[string]HandlerFunc // key = METHOD:PATH
	paths  map[string]bool        // track registered paths
	log    *slog.Logger
}

func New(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		mux:    http.NewServeMux(),
		routes: make(map[string]HandlerFunc),
		paths:  make(map[string]bool),
		log:    logger,
	}
	r.mux.HandleFunc("/", r.dispatch)
	return r
}

func (r *Router) dispatch(w http.ResponseWriter, req *http.Request) {
	if h, ok := r.routes[req.Method+":"+req.URL.Path]; ok {
		h(w, req)
		return
	}

	best, bestScore := "", -1
	pathMatched := r.paths[req.URL.Path]
	for routePath := range r.paths {
		if !strings.Contains(routePath, "*") {
			continue
		}
		score, ok := matchWildcardRoute(req.URL.Path, routePath)
		if !ok {
			continue
		}
		pathMatched = true
		if _, ok := r.routes[req.Method+":"+routePath]; !ok {
			continue
		}
		if score > bestScore || (score == bestScore && routePath < best) {
			best, bestScore = routePath, score
		}
	}
	if bestScore >= 0 {
		r.routes[req.Method+":"+best](w, req)
		return
	}
	if pathMatched {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	http.Error(w, "Not Found", http.StatusNotFound)
}

// matchWildcardRoute reports whether requestPath matches routePattern and how many
// literal segments the match used.
func matchWildcardRoute(requestPath, routePattern string) (int, bool) {
	requestSegments := strings.Split(strings.Trim(requestPath, "/"), "/")
	routeSegments := strings.Split(strings.Trim(routePattern, "/"), "/")

	if n := len(routeSegments); n > 0 && routeSegments[n-1] == "**" {
		if len(requestSegments) < n-1 {
			return 0, false
		}
		score := 0
		for i := 0; i < n-1; i++ {
			if routeSegments[i] == "*" {
				continue
			}
			if requestSegments[i] != routeSegments[i] {
				return 0, false
			}
			score++
		}
		return score, true
	}

	if len(requestSegments) != len(routeSegments) {
		return 0, false
	}
	score := 0
	for i, routeSegment := range routeSegments {
		if routeSegment == "*" {
			if requestSegments[i] == "" {
				return 0, false
			}
			continue
		}
		if requestSegments[i] != routeSegment {
			return 0, false
		}
		score++
	}
	return score, true
}

// --- Register paths ---
func (r *Router) register(method, path string, handler HandlerFunc) {
	key := method + ":" + path
	r.routes[key] = handler
	r.paths[path] = true
}

func (r *Router) GET(path string, handler HandlerFunc)   { r.register(http.MethodGet, path, handler) }
func (r *Router) POST(path string, handler HandlerFunc)  { r.register(http.MethodPost, path, handler) }
func (r *Router) PUT(path string, handler HandlerFunc)   { r.register(http.MethodPut, path, handler) }
func (r *Router) PATCH(path string, handler HandlerFunc) { r.register(http.MethodPatch, path, handler) }
func (r *Router) DELETE(path string, handler HandlerFunc) {
	r.register(http.MethodDelete, path, handler)
}

// Handle mounts h for every request under prefix, bypassing method routing.
func (r *Router) Handle(prefix string, h http.Handler) {
	r.mux.Handle(prefix, h)
}

// Routes exposes the registered METHOD:PATH handlers.
func (r *Router) Routes() map[string]HandlerFunc {
	return r.routes
}

// Paths exposes the registered paths.
func (r *Router) Paths() map[string]bool {
	return r.paths
}

// ServeHTTP routes the request and logs one line for it.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
	r.mux.ServeHTTP(lrw, req)

	level := slog.LevelInfo
	if lrw.statusCode >= 500 {
		level = slog.LevelError
	} else if lrw.statusCode >= 400 {
		level = slog.LevelWarn
	}
	r.log.LogAttrs(req.Context(), level, "http request",
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("status", lrw.statusCode),
		slog.Duration("duration", time.Since(start)),
	)
}

// Server returns an http.Server serving the router on addr.
func (r *Router) Server(addr string, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}
}

// --- Logging response writer to capture status codes ---
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}
