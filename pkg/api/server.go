package api

import (
	"context"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"client-manager/pkg/metrics"
	"client-manager/pkg/models"
	"client-manager/pkg/reminders"
)

// ClientStore is the client record store as seen by the handlers.
type ClientStore interface {
	ListAllClientProjects(ctx context.Context) ([]models.ClientProject, error)
	GetClientProject(ctx context.Context, id int64) (models.ClientProject, error)
	CreateClientProject(ctx context.Context, c models.ClientProject) (models.ClientProject, error)
	UpdateClientProject(ctx context.Context, c models.ClientProject) (models.ClientProject, error)
	DeleteClientProject(ctx context.Context, id int64) error
}

// ExpenseStore persists business expenses.
type ExpenseStore interface {
	ListExpenses(ctx context.Context) ([]models.BusinessExpense, error)
	GetExpense(ctx context.Context, id int64) (models.BusinessExpense, error)
	CreateExpense(ctx context.Context, e models.BusinessExpense) (models.BusinessExpense, error)
	UpdateExpense(ctx context.Context, e models.BusinessExpense) (models.BusinessExpense, error)
	DeleteExpense(ctx context.Context, id int64) error
}

// Analytics produces the analytics summary.
type Analytics interface {
	Summary(ctx context.Context) (models.AnalyticsSummary, error)
	Invalidate(ctx context.Context)
}

// Reminders decides and records renewal reminders.
type Reminders interface {
	Check(ctx context.Context) ([]reminders.Candidate, error)
	Send(ctx context.Context, clientIDs []int64) (reminders.SendReport, error)
	History(ctx context.Context) ([]models.ClientReminder, error)
	Stats(ctx context.Context) (models.ReminderStats, error)
}

// Documents renders invoices and receipts.
type Documents interface {
	Invoice(w io.Writer, p models.ClientProject) error
	Receipt(w io.Writer, p models.ClientProject) (bool, error)
}

// Jobs are the background jobs also exposed to external cron callers.
type Jobs interface {
	RunRecurring(ctx context.Context) error
	RunReminders(ctx context.Context) (reminders.SendReport, error)
}

// BuildInfo is reported by /version.
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
}

// Options tune the router.
type Options struct {
	CronToken      string
	RateLimitRPS   float64
	RateLimitBurst int
	Build          BuildInfo
}

// Server holds the handler dependencies.
type Server struct {
	clients   ClientStore
	expenses  ExpenseStore
	analytics Analytics
	reminders Reminders
	documents Documents
	jobs      Jobs
	opts      Options
	logger    *zap.Logger
}

func NewServer(
	clients ClientStore,
	expenses ExpenseStore,
	analytics Analytics,
	rem Reminders,
	documents Documents,
	jobs Jobs,
	opts Options,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		clients:   clients,
		expenses:  expenses,
		analytics: analytics,
		reminders: rem,
		documents: documents,
		jobs:      jobs,
		opts:      opts,
		logger:    logger,
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	if s.opts.RateLimitRPS > 0 {
		api.Use(newRateLimiter(s.opts.RateLimitRPS, s.opts.RateLimitBurst, s.logger).Handler)
	}
	s.setupClientRoutes(api)
	s.setupExpenseRoutes(api)
	s.setupReminderRoutes(api)
	api.HandleFunc("/business-analytics", s.handleBusinessAnalytics).Methods(http.MethodGet)

	router.HandleFunc("/invoice/{id:[0-9]+}", s.handleInvoice).Methods(http.MethodGet)
	router.HandleFunc("/receipt/{id:[0-9]+}", s.handleReceipt).Methods(http.MethodGet)

	internal := router.PathPrefix("/internal").Subrouter()
	internal.Use(cronTokenMiddleware(s.opts.CronToken, s.logger))
	internal.HandleFunc("/run-recurring", s.handleRunRecurring).Methods(http.MethodPost)
	internal.HandleFunc("/run-reminders", s.handleRunReminders).Methods(http.MethodPost)

	// Unmatched requests skip router middleware, so both fallbacks carry CORS
	// themselves. corsMiddleware also answers preflight OPTIONS requests, which
	// otherwise land here as a method mismatch.
	router.NotFoundHandler = fallback(http.StatusNotFound, "not found")
	router.MethodNotAllowedHandler = fallback(http.StatusMethodNotAllowed, "method not allowed")

	router.Use(metrics.InstrumentHandler)
	router.Use(loggingMiddleware(s.logger))
	router.Use(corsMiddleware())
	router.Use(securityHeadersMiddleware())
	return router
}

func fallback(status int, message string) http.Handler {
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, status, message)
	})
	return corsMiddleware()(securityHeadersMiddleware()(h))
}

func (s *Server) setupClientRoutes(api *mux.Router) {
	api.HandleFunc("/clients", s.handleListClients).Methods(http.MethodGet)
	api.HandleFunc("/clients", s.handleCreateClient).Methods(http.MethodPost)
	api.HandleFunc("/clients/{id:[0-9]+}", s.handleUpdateClient).Methods(http.MethodPut)
	api.HandleFunc("/clients/{id:[0-9]+}", s.handleDeleteClient).Methods(http.MethodDelete)
}

func (s *Server) setupExpenseRoutes(api *mux.Router) {
	api.HandleFunc("/expenses", s.handleListExpenses).Methods(http.MethodGet)
	api.HandleFunc("/expenses", s.handleCreateExpense).Methods(http.MethodPost)
	api.HandleFunc("/expenses/{id:[0-9]+}", s.handleUpdateExpense).Methods(http.MethodPut)
	api.HandleFunc("/expenses/{id:[0-9]+}", s.handleDeleteExpense).Methods(http.MethodDelete)
}

func (s *Server) setupReminderRoutes(api *mux.Router) {
	rem := api.PathPrefix("/reminders").Subrouter()
	rem.HandleFunc("/check", s.handleCheckReminders).Methods(http.MethodGet)
	rem.HandleFunc("/send", s.handleSendReminders).Methods(http.MethodPost)
	rem.HandleFunc("/history", s.handleReminderHistory).Methods(http.MethodGet)
	rem.HandleFunc("/stats", s.handleReminderStats).Methods(http.MethodGet)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Build)
}
