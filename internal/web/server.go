package web

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"bom2pic/internal/account"
	"bom2pic/internal/payment"
)

// Config holds the server's runtime settings.
type Config struct {
	MaxUploadMB int
	AdminKey    string
	BaseURL     string
	Version     string
}

// Server handles HTTP requests for the extraction service
type Server struct {
	accounts     *account.Service
	checkout     payment.Checkout
	cfg          Config
	adminKeyHash [sha256.Size]byte
	mux          *http.ServeMux

	signupLimit  *ipLimiter
	paymentLimit *ipLimiter
	processLimit *ipLimiter
}

// NewServer creates a new Server with default mux
func NewServer(accounts *account.Service, checkout payment.Checkout, cfg Config) *Server {
	return NewServerWithMux(accounts, checkout, cfg, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(accounts *account.Service, checkout payment.Checkout, cfg Config, mux *http.ServeMux) *Server {
	s := &Server{
		accounts:     accounts,
		checkout:     checkout,
		cfg:          cfg,
		adminKeyHash: sha256.Sum256([]byte(cfg.AdminKey)),
		mux:          mux,
		signupLimit:  newIPLimiter(5, 5*time.Minute),
		paymentLimit: newIPLimiter(3, 5*time.Minute),
		processLimit: newIPLimiter(10, time.Hour),
	}
	s.registerRoutes()
	return s
}

// corsMiddleware adds CORS headers to responses
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

// withLimit rejects callers that exceed the per-IP budget for the endpoint
func (s *Server) withLimit(limiter *ipLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !limiter.allow(clientIP(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(int(limiter.window.Seconds())))
			jsonError(w, http.StatusTooManyRequests,
				fmt.Sprintf("Rate limit exceeded. Maximum %d requests per %s.", limiter.burst, limiter.window))
			return
		}
		next(w, r)
	}
}

// registerRoutes registers all API routes on the server's mux
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/plans", s.handlePlans)
	s.mux.HandleFunc("POST /api/auth/signup", s.withLimit(s.signupLimit, s.handleSignup))
	s.mux.HandleFunc("POST /process", s.withLimit(s.processLimit, s.handleProcess))
	s.mux.HandleFunc("POST /api/payment/create", s.withLimit(s.paymentLimit, s.handleCreatePayment))
	s.mux.HandleFunc("GET /api/payment/verify", s.withLimit(s.paymentLimit, s.handleVerifyPayment))
	s.mux.HandleFunc("GET /api/admin/users", s.handleAdminUsers)
	s.mux.HandleFunc("GET /", s.handleIndex)
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
			s.mux.ServeHTTP(w, r)
		})(w, r)
	}))
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
