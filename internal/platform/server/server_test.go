package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/finplan/backend/internal/ledger/adapter/repo"
	"github.com/finplan/backend/internal/ledger/api"
	"github.com/finplan/backend/internal/ledger/domain"
	"github.com/finplan/backend/internal/ledger/service"
	"github.com/finplan/backend/internal/platform/database"
)

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewSQLiteDB("file:"+strings.ReplaceAll(t.Name(), "/", "_")+"?mode=memory&cache=shared", database.Options{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	names := service.DefaultCategoryNames()
	var seeds []database.SeedCategory
	for n, scope := range names.Scopes() {
		seeds = append(seeds, database.SeedCategory{Name: n, Scope: scope})
	}
	if err := database.SeedCategories(db, seeds); err != nil {
		t.Fatalf("seed categories: %v", err)
	}

	logger := zap.NewNop()
	itemRepo := repo.NewItemRepo()
	settingsRepo := repo.NewPlanSettingsRepo()
	txRepo := repo.NewTransactionRepo()
	chainRepo := repo.NewChainRepo()
	refRepo := repo.NewReferenceRepo()

	ledgerSvc := service.NewLedgerService(db, itemRepo, txRepo, refRepo, logger)
	chainSvc := service.NewChainService(db, chainRepo, txRepo, ledgerSvc, logger)
	planSvc := service.NewPlanService(db, itemRepo, settingsRepo, refRepo, chainSvc, ledgerSvc, names, logger)
	itemSvc := service.NewItemService(db, itemRepo, settingsRepo, txRepo, refRepo, ledgerSvc, chainSvc, planSvc, domain.SystemClock{}, names, logger)

	return NewEngine(logger, api.NewLedgerHandler(ledgerSvc, itemSvc, planSvc, chainSvc))
}

// do 以用户 7 的身份发送请求，返回记录器
func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "7")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d, body = %s", w.Code, want, w.Body.String())
	}
}

func createAccount(t *testing.T, r http.Handler, name string, balance int64) api.ItemResp {
	t.Helper()
	w := do(t, r, http.MethodPost, "/api/v1/items", gin.H{
		"kind":           "ASSET",
		"type_code":      domain.TypeBankAccount,
		"name":           name,
		"currency_code":  "USD",
		"initial_value":  balance,
		"open_date":      "2024-01-01",
		"history_status": "HISTORICAL",
	})
	expectStatus(t, w, http.StatusCreated)
	return decode[api.ItemResp](t, w)
}

func TestOwnerHeaderRequired(t *testing.T) {
	r := newTestEngine(t)

	for _, header := range []string{"", "abc", "0"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)
		if header != "" {
			req.Header.Set("X-User-ID", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("X-User-ID %q: status = %d, want 401", header, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Errorf("missing X-Request-ID response header")
	}
}

func TestTransactionLifecycle(t *testing.T) {
	r := newTestEngine(t)
	acc := createAccount(t, r, "Checking", 10000)
	if acc.CurrentValue != 10000 || acc.CurrentValueDisplay == "" {
		t.Fatalf("item = %+v", acc)
	}

	w := do(t, r, http.MethodPost, "/api/v1/transactions", gin.H{
		"transaction_date": "2024-02-01",
		"direction":        "EXPENSE",
		"primary_item_id":  acc.ID,
		"amount":           4000,
	})
	expectStatus(t, w, http.StatusCreated)
	tx := decode[api.TransactionResp](t, w)
	if tx.Status != string(domain.StatusConfirmed) || tx.TransactionType != string(domain.Actual) {
		t.Errorf("transaction = %+v", tx)
	}

	w = do(t, r, http.MethodGet, fmt.Sprintf("/api/v1/items/%d", acc.ID), nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[api.ItemResp](t, w).CurrentValue; got != 6000 {
		t.Errorf("balance = %d, want 6000", got)
	}

	// 余额不足
	w = do(t, r, http.MethodPost, "/api/v1/transactions", gin.H{
		"transaction_date": "2024-02-02",
		"direction":        "EXPENSE",
		"primary_item_id":  acc.ID,
		"amount":           7000,
	})
	expectStatus(t, w, http.StatusBadRequest)
	if got := decode[api.ErrorResp](t, w).Reason; got != string(domain.ReasonInsufficientFunds) {
		t.Errorf("reason = %q, want insufficient_funds", got)
	}

	w = do(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/transactions/%d", tx.ID), nil)
	expectStatus(t, w, http.StatusNoContent)

	w = do(t, r, http.MethodGet, fmt.Sprintf("/api/v1/items/%d", acc.ID), nil)
	if got := decode[api.ItemResp](t, w).CurrentValue; got != 10000 {
		t.Errorf("balance after delete = %d, want 10000", got)
	}

	w = do(t, r, http.MethodGet, "/api/v1/transactions/99999", nil)
	expectStatus(t, w, http.StatusNotFound)
}

func TestRequestValidation(t *testing.T) {
	r := newTestEngine(t)
	acc := createAccount(t, r, "Checking", 100)

	tests := []struct {
		name   string
		body   gin.H
		reason domain.Reason
	}{
		{
			name:   "unknown direction",
			body:   gin.H{"transaction_date": "2024-02-01", "direction": "GIFT", "primary_item_id": acc.ID, "amount": 1},
			reason: domain.ReasonInvalid,
		},
		{
			name:   "bad date",
			body:   gin.H{"transaction_date": "01.02.2024", "direction": "EXPENSE", "primary_item_id": acc.ID, "amount": 1},
			reason: domain.ReasonInvalidDate,
		},
		{
			name:   "transfer to itself",
			body:   gin.H{"transaction_date": "2024-02-01", "direction": "TRANSFER", "primary_item_id": acc.ID, "counterparty_item_id": acc.ID, "amount": 1},
			reason: domain.ReasonSameItem,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, "/api/v1/transactions", tt.body)
			expectStatus(t, w, http.StatusBadRequest)
			if got := decode[api.ErrorResp](t, w).Reason; got != string(tt.reason) {
				t.Errorf("reason = %q, want %q", got, tt.reason)
			}
		})
	}
}

func TestListTransactionsCursor(t *testing.T) {
	r := newTestEngine(t)
	acc := createAccount(t, r, "Checking", 10000)
	for _, day := range []string{"2024-02-01", "2024-02-02", "2024-02-03"} {
		w := do(t, r, http.MethodPost, "/api/v1/transactions", gin.H{
			"transaction_date": day,
			"direction":        "INCOME",
			"primary_item_id":  acc.ID,
			"amount":           100,
		})
		expectStatus(t, w, http.StatusCreated)
	}

	w := do(t, r, http.MethodGet, "/api/v1/transactions?limit=2&direction=INCOME", nil)
	expectStatus(t, w, http.StatusOK)
	page := decode[api.TransactionPageResp](t, w)
	if len(page.Items) != 2 || !page.HasMore || page.NextCursor == "" {
		t.Fatalf("first page = %+v", page)
	}
	if page.Items[0].TransactionDate != "2024-02-03" {
		t.Errorf("first row date = %s, want newest first", page.Items[0].TransactionDate)
	}

	w = do(t, r, http.MethodGet, "/api/v1/transactions?limit=2&direction=INCOME&cursor="+url.QueryEscape(page.NextCursor), nil)
	expectStatus(t, w, http.StatusOK)
	next := decode[api.TransactionPageResp](t, w)
	if len(next.Items) != 1 || next.HasMore || next.Items[0].TransactionDate != "2024-02-01" {
		t.Errorf("second page = %+v", next)
	}

	w = do(t, r, http.MethodGet, "/api/v1/transactions?cursor=garbage", nil)
	expectStatus(t, w, http.StatusBadRequest)
}

func TestChainEndpoints(t *testing.T) {
	r := newTestEngine(t)
	acc := createAccount(t, r, "Checking", 10000)

	w := do(t, r, http.MethodPost, "/api/v1/chains", gin.H{
		"name":            "Rent",
		"start_date":      "2024-01-10",
		"end_date":        "2024-03-10",
		"rule":            gin.H{"frequency": "MONTHLY", "monthly_day": 10},
		"direction":       "EXPENSE",
		"primary_item_id": acc.ID,
		"amount":          1000,
	})
	expectStatus(t, w, http.StatusCreated)
	chain := decode[api.ChainResp](t, w)

	w = do(t, r, http.MethodGet, fmt.Sprintf("/api/v1/transactions?chain_id=%d&type=PLANNED", chain.ID), nil)
	expectStatus(t, w, http.StatusOK)
	if got := len(decode[api.TransactionPageResp](t, w).Items); got != 3 {
		t.Errorf("planned rows = %d, want 3", got)
	}

	w = do(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/chains/%d", chain.ID), nil)
	expectStatus(t, w, http.StatusNoContent)

	w = do(t, r, http.MethodGet, fmt.Sprintf("/api/v1/transactions?chain_id=%d", chain.ID), nil)
	if got := len(decode[api.TransactionPageResp](t, w).Items); got != 0 {
		t.Errorf("rows after delete = %d, want 0", got)
	}
}

func TestRealizeTwiceConflicts(t *testing.T) {
	r := newTestEngine(t)
	acc := createAccount(t, r, "Checking", 10000)

	w := do(t, r, http.MethodPost, "/api/v1/transactions", gin.H{
		"transaction_date": "2024-03-01",
		"direction":        "EXPENSE",
		"transaction_type": "PLANNED",
		"primary_item_id":  acc.ID,
		"amount":           2500,
	})
	expectStatus(t, w, http.StatusCreated)
	planned := decode[api.TransactionResp](t, w)

	path := fmt.Sprintf("/api/v1/transactions/%d/realize", planned.ID)
	w = do(t, r, http.MethodPost, path, nil)
	expectStatus(t, w, http.StatusCreated)
	if actual := decode[api.TransactionResp](t, w); actual.TransactionType != string(domain.Actual) || actual.Amount != 2500 {
		t.Errorf("actual = %+v", actual)
	}

	w = do(t, r, http.MethodPost, path, nil)
	expectStatus(t, w, http.StatusConflict)

	w = do(t, r, http.MethodGet, fmt.Sprintf("/api/v1/items/%d", acc.ID), nil)
	if got := decode[api.ItemResp](t, w).CurrentValue; got != 7500 {
		t.Errorf("balance = %d, want 7500", got)
	}
}

func TestPreviewPlan(t *testing.T) {
	r := newTestEngine(t)

	w := do(t, r, http.MethodPost, "/api/v1/plans/preview", gin.H{
		"mode":              "loan",
		"principal":         60000,
		"annual_percent":    "12",
		"open_date":         "2024-01-15",
		"end_date":          "2024-07-15",
		"first_payout_rule": "SHIFT_ONE_MONTH",
		"rule":              gin.H{"frequency": "MONTHLY"},
		"repayment_type":    "ANNUITY",
		"full_repayment":    true,
	})
	expectStatus(t, w, http.StatusOK)
	resp := decode[api.PreviewResp](t, w)
	if len(resp.Rows) != 6 || resp.TotalPrincipal != 60000 || resp.TotalInterest <= 0 {
		t.Errorf("preview = %+v", resp)
	}

	w = do(t, r, http.MethodPost, "/api/v1/plans/preview", gin.H{
		"mode":           "loan",
		"principal":      60000,
		"annual_percent": "12",
		"open_date":      "2024-01-15",
		"end_date":       "2024-07-15",
	})
	expectStatus(t, w, http.StatusBadRequest)
	if got := decode[api.ErrorResp](t, w); got.Reason != string(domain.ReasonMissingField) || got.Field != "rule" {
		t.Errorf("error = %+v, want missing rule", got)
	}
}
