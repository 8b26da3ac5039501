package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"bilancio/internal/auth"
	"bilancio/internal/cache"
	"bilancio/internal/config"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/storage"
)

type Server struct {
	http.Server

	repo        *storage.SQLiteRepository
	ledger      *services.LedgerService
	distributor *services.Distributor
	sessions    *auth.SessionProvider
	jwtSecret   string
	logger      *log.Logger

	rateLimiter  *rateLimiter
	summaryCache *cache.LRUCache[core.MonthSummary]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(cfg *config.Config, repo *storage.SQLiteRepository, ledger *services.LedgerService, distributor *services.Distributor, sessions *auth.SessionProvider, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    ":" + cfg.Port,
			Handler: mux,
		},
		repo:         repo,
		ledger:       ledger,
		distributor:  distributor,
		sessions:     sessions,
		jwtSecret:    cfg.JWTSecret,
		logger:       logger.WithComponent(log.ComponentHTTP),
		rateLimiter:  newRateLimiter(60, time.Minute),
		summaryCache: cache.NewLRUCache[core.MonthSummary](200, 5*time.Minute),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/auth/register", s.wrap(s.handleRegister))
	mux.HandleFunc("POST /api/auth/login", s.wrap(s.handleLogin))
	mux.HandleFunc("POST /api/auth/logout", s.secured(s.handleLogout))
	mux.HandleFunc("GET /api/me", s.secured(s.handleMe))

	mux.HandleFunc("GET /api/transactions", s.secured(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.secured(s.handleCreateTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.secured(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.secured(s.handleDeleteTransaction))
	mux.HandleFunc("GET /api/summary/monthly", s.secured(s.handleMonthSummary))

	mux.HandleFunc("GET /api/categories", s.secured(s.handleListCategories))

	mux.HandleFunc("GET /api/budgets", s.secured(s.handleListBudgets))
	mux.HandleFunc("POST /api/budgets", s.secured(s.handleSetBudget))
	mux.HandleFunc("PUT /api/budgets/{id}", s.secured(s.handleUpdateBudget))
	mux.HandleFunc("PUT /api/budgets/{id}/categories", s.secured(s.handleReplaceBudgetCategories))
	mux.HandleFunc("GET /api/budgets/{id}/categories", s.secured(s.handleListBudgetCategories))

	mux.HandleFunc("GET /api/salaries", s.secured(s.handleListSalaries))
	mux.HandleFunc("POST /api/salaries", s.secured(s.handleCreateSalary))
	mux.HandleFunc("PUT /api/salaries/{id}", s.secured(s.handleUpdateSalary))
	mux.HandleFunc("DELETE /api/salaries/{id}", s.secured(s.handleDeleteSalary))

	mux.HandleFunc("GET /api/groups", s.secured(s.handleListGroups))
	mux.HandleFunc("POST /api/groups", s.secured(s.handleCreateGroup))
	mux.HandleFunc("GET /api/groups/{id}", s.secured(s.handleGetGroup))
	mux.HandleFunc("POST /api/groups/{id}/members", s.secured(s.handleAddGroupMember))
	mux.HandleFunc("DELETE /api/groups/{id}/members/{uid}", s.secured(s.handleRemoveGroupMember))
	mux.HandleFunc("GET /api/groups/{id}/budget", s.secured(s.handleGetGroupBudget))
	mux.HandleFunc("GET /api/groups/{id}/transactions", s.secured(s.handleListGroupTransactions))
	mux.HandleFunc("GET /api/groups/{id}/invitations", s.secured(s.handleListInvitations))
	mux.HandleFunc("POST /api/groups/{id}/invitations", s.secured(s.handleCreateInvitation))
	mux.HandleFunc("DELETE /api/groups/{id}/invitations/{iid}", s.secured(s.handleRevokeInvitation))
	mux.HandleFunc("POST /api/invitations/accept", s.secured(s.handleAcceptInvitation))

	mux.HandleFunc("GET /api/export/xlsx", s.secured(s.handleExportXLSX))

	// Job triggers are meant for the scheduler, not end users.
	mux.HandleFunc("GET /api/jobs/salary-distribution", s.wrap(s.handleDistributionRun))
	mux.HandleFunc("GET /api/jobs/salary-distribution/test", s.wrap(s.handleDistributionTest))

	return s
}

// wrap applies security headers, rate limiting and request logging.
func (s *Server) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		logger := s.logger.With(log.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), log.LoggerContextKey, logger)
		r = r.WithContext(ctx)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			logger.WarnContext(ctx, "rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		setSecurityHeaders(w)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		logger.InfoContext(ctx, "request completed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds(),
			log.FieldClientIP, clientIP)
	}
}

// secured is wrap plus the access guard.
func (s *Server) secured(next http.HandlerFunc) http.HandlerFunc {
	return s.wrap(s.requireAuth(next))
}

// responseWriter captures the status code for request logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) summaryCacheKey(userID int64, month core.Month) string {
	return strconv.FormatInt(userID, 10) + ":" + month.String()
}

// invalidateSummary drops the cached summary after a write.
func (s *Server) invalidateSummary(userID int64, month core.Month) {
	s.summaryCache.Delete(s.summaryCacheKey(userID, month))
}

// Shutdown stops background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		s.cacheManager.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
