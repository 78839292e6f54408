package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/punchamoorthee/expensemanager/internal/domain"
	"github.com/punchamoorthee/expensemanager/internal/models"
	"github.com/punchamoorthee/expensemanager/internal/reports"
	"github.com/punchamoorthee/expensemanager/internal/store"
)

const queryDateLayout = "2006-01-02"

func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	user, err := h.svc.Auth.Register(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, user)
}

func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	token, expiresAt, user, err := h.svc.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.TokenResponse{Token: token, ExpiresAt: expiresAt, User: user})
}

func (h *Handler) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Auth.Me(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

// Accounts

func (h *Handler) ListAccountsHandler(w http.ResponseWriter, r *http.Request) {
	activeOnly, err := queryBool(r, "active")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	accounts, err := h.svc.Accounts.List(r.Context(), activeOnly)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, accounts)
}

func (h *Handler) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req models.AccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	account, err := h.svc.Accounts.Create(r.Context(), req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/accounts/"+account.ID.String())
	respondWithJSON(w, http.StatusCreated, account)
}

func (h *Handler) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	account, err := h.svc.Accounts.Get(r.Context(), id)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, account)
}

func (h *Handler) UpdateAccountHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	var req models.AccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	account, err := h.svc.Accounts.Update(r.Context(), id, req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, account)
}

func (h *Handler) DeleteAccountHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if err := h.svc.Accounts.Delete(r.Context(), id); err != nil {
		respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Categories

func (h *Handler) ListCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	activeOnly, err := queryBool(r, "active")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	filter := store.CategoryFilter{ActiveOnly: activeOnly}
	if t := r.URL.Query().Get("type"); t != "" {
		filter.Type = domain.TransactionType(t)
		if !filter.Type.Valid() {
			respondErr(w, r, badRequest("type must be income or expense"))
			return
		}
	}
	categories, err := h.svc.Categories.List(r.Context(), filter)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, categories)
}

func (h *Handler) CreateCategoryHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	category, err := h.svc.Categories.Create(r.Context(), req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, category)
}

func (h *Handler) UpdateCategoryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	var req models.CategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	category, err := h.svc.Categories.Update(r.Context(), id, req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, category)
}

func (h *Handler) DeleteCategoryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if err := h.svc.Categories.Delete(r.Context(), id); err != nil {
		respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Transactions

func (h *Handler) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter store.TransactionFilter
	var err error

	if v := q.Get("account_id"); v != "" {
		id, perr := uuid.Parse(v)
		if perr != nil {
			respondErr(w, r, badRequest("account_id is not a valid id"))
			return
		}
		filter.AccountID = &id
	}
	if v := q.Get("type"); v != "" {
		filter.Type = domain.TransactionType(v)
		if !filter.Type.Valid() {
			respondErr(w, r, badRequest("type must be income or expense"))
			return
		}
	}
	if filter.From, err = queryDate(r, "from"); err != nil {
		respondErr(w, r, err)
		return
	}
	if filter.To, err = queryDate(r, "to"); err != nil {
		respondErr(w, r, err)
		return
	}
	if filter.Limit, err = queryInt(r, "limit", 0); err != nil {
		respondErr(w, r, err)
		return
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		respondErr(w, r, err)
		return
	}

	txs, err := h.svc.Transactions.List(r.Context(), filter)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, txs)
}

func (h *Handler) CreateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	var req models.TransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	tx, err := h.svc.Transactions.Create(r.Context(), req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/transactions/"+tx.ID.String())
	respondWithJSON(w, http.StatusCreated, tx)
}

func (h *Handler) GetTransactionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	tx, err := h.svc.Transactions.Get(r.Context(), id)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, tx)
}

func (h *Handler) UpdateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	var req models.TransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	tx, err := h.svc.Transactions.Update(r.Context(), id, req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, tx)
}

func (h *Handler) DeleteTransactionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if err := h.svc.Transactions.Delete(r.Context(), id); err != nil {
		respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Dashboard.Summary(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, d)
}

// Reports

func (h *Handler) MonthlySummaryHandler(w http.ResponseWriter, r *http.Request) {
	year, month, err := queryMonth(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	summary, err := h.svc.Reports.MonthlySummary(r.Context(), year, month)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

func (h *Handler) IncomeByCategoryHandler(w http.ResponseWriter, r *http.Request) {
	year, month, err := queryMonth(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	totals, err := h.svc.Reports.IncomeByCategory(r.Context(), year, month)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, totals)
}

func (h *Handler) DailyExpenseTrendHandler(w http.ResponseWriter, r *http.Request) {
	from, err := queryDate(r, "from")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	days, err := h.svc.Reports.DailyExpenseTrend(r.Context(), from, to)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, days)
}

func (h *Handler) BalancePerAccountHandler(w http.ResponseWriter, r *http.Request) {
	balances, err := h.svc.Reports.BalancePerAccount(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, balances)
}

// AccountStatementHandler serves JSON by default and XML with format=xml.
func (h *Handler) AccountStatementHandler(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("account_id")
	accountID, err := uuid.Parse(raw)
	if err != nil {
		respondErr(w, r, badRequest("account_id is required and must be a valid id"))
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	account, lines, err := h.svc.Reports.AccountStatement(r.Context(), accountID, limit)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		respondWithJSON(w, http.StatusOK, map[string]any{"account": account, "lines": lines})
	case "xml":
		out, err := reports.StatementXML(account, lines, time.Now().UTC())
		if err != nil {
			respondErr(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusOK)
		w.Write(out)
	default:
		respondErr(w, r, badRequest("format must be json or xml, got %q", format))
	}
}

func parseID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return uuid.Nil, badRequest("invalid id %q", mux.Vars(r)["id"])
	}
	return id, nil
}

func queryBool(r *http.Request, key string) (bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, badRequest("%s must be true or false", key)
	}
	return b, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, badRequest("%s must be an integer", key)
	}
	return n, nil
}

func queryDate(r *http.Request, key string) (time.Time, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(queryDateLayout, v)
	if err != nil {
		return time.Time{}, badRequest("%s must be a date in YYYY-MM-DD form", key)
	}
	return t, nil
}

// queryMonth reads year and month, defaulting each to the current one.
func queryMonth(r *http.Request) (int, int, error) {
	now := time.Now().UTC()
	year, err := queryInt(r, "year", now.Year())
	if err != nil {
		return 0, 0, err
	}
	month, err := queryInt(r, "month", int(now.Month()))
	if err != nil {
		return 0, 0, err
	}
	return year, month, nil
}
