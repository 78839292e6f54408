package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/punchamoorthee/expensemanager/internal/auth"
	"github.com/punchamoorthee/expensemanager/internal/domain"
	"github.com/punchamoorthee/expensemanager/internal/logger"
	"github.com/punchamoorthee/expensemanager/internal/reports"
	"github.com/punchamoorthee/expensemanager/internal/service"
)

// Metrics
var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "expense_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "expense_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})
)

// Services bundles everything the handlers call.
type Services struct {
	Auth         *auth.Service
	Tokens       *auth.Issuer
	Accounts     *service.AccountService
	Categories   *service.CategoryService
	Transactions *service.TransactionService
	Dashboard    *service.DashboardService
	Reports      *reports.Service
}

type Handler struct {
	svc Services
	log zerolog.Logger
}

func NewHandler(svc Services, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Router wires every route behind the shared middleware chain.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestID, Logger(h.log), Recovery, Metrics, CORS)
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", h.HealthCheckHandler).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/auth/register", h.RegisterHandler).Methods(http.MethodPost)
	v1.HandleFunc("/auth/login", h.LoginHandler).Methods(http.MethodPost)

	p := v1.NewRoute().Subrouter()
	p.Use(Authenticate(h.svc.Tokens))
	p.HandleFunc("/auth/me", h.MeHandler).Methods(http.MethodGet)

	p.HandleFunc("/accounts", h.ListAccountsHandler).Methods(http.MethodGet)
	p.HandleFunc("/accounts", h.CreateAccountHandler).Methods(http.MethodPost)
	p.HandleFunc("/accounts/{id}", h.GetAccountHandler).Methods(http.MethodGet)
	p.HandleFunc("/accounts/{id}", h.UpdateAccountHandler).Methods(http.MethodPut)
	p.HandleFunc("/accounts/{id}", h.DeleteAccountHandler).Methods(http.MethodDelete)

	p.HandleFunc("/categories", h.ListCategoriesHandler).Methods(http.MethodGet)
	p.HandleFunc("/categories", h.CreateCategoryHandler).Methods(http.MethodPost)
	p.HandleFunc("/categories/{id}", h.UpdateCategoryHandler).Methods(http.MethodPut)
	p.HandleFunc("/categories/{id}", h.DeleteCategoryHandler).Methods(http.MethodDelete)

	p.HandleFunc("/transactions", h.ListTransactionsHandler).Methods(http.MethodGet)
	p.HandleFunc("/transactions", h.CreateTransactionHandler).Methods(http.MethodPost)
	p.HandleFunc("/transactions/{id}", h.GetTransactionHandler).Methods(http.MethodGet)
	p.HandleFunc("/transactions/{id}", h.UpdateTransactionHandler).Methods(http.MethodPut)
	p.HandleFunc("/transactions/{id}", h.DeleteTransactionHandler).Methods(http.MethodDelete)

	p.HandleFunc("/dashboard", h.DashboardHandler).Methods(http.MethodGet)

	p.HandleFunc("/reports/monthly-summary", h.MonthlySummaryHandler).Methods(http.MethodGet)
	p.HandleFunc("/reports/income-by-category", h.IncomeByCategoryHandler).Methods(http.MethodGet)
	p.HandleFunc("/reports/daily-expense-trend", h.DailyExpenseTrendHandler).Methods(http.MethodGet)
	p.HandleFunc("/reports/balance-per-account", h.BalancePerAccountHandler).Methods(http.MethodGet)
	p.HandleFunc("/reports/account-statement", h.AccountStatementHandler).Methods(http.MethodGet)

	return r
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// errBadRequest marks a body or query that could not be parsed at all.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// statusFor maps an error to its HTTP status and client-facing message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, domain.ErrSystemEntityProtected):
		return http.StatusForbidden, domain.ErrSystemEntityProtected.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, domain.ErrAccountInUse), errors.Is(err, domain.ErrEmailTaken):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusUnprocessableEntity, err.Error()
	}
	return http.StatusInternalServerError, "Internal Server Error"
}

// respondErr reports err to the client. Unexpected errors are logged with
// the request logger and hidden behind a generic message.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := statusFor(err)
	if code == http.StatusInternalServerError {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("request failed")
	}
	respondWithError(w, code, msg)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("Malformed JSON body: %v", err)
	}
	return nil
}
