package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"installhub/app"
	memoryRepo "installhub/database/repository/memory"
	"installhub/models"
	"installhub/utils"

	"github.com/gin-gonic/gin"
)

type harness struct {
	t      *testing.T
	router *gin.Engine
	svc    *app.Services
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repos := app.NewMemoryRepositories(memoryRepo.NewStore())
	svc := app.BuildServices(repos, app.Options{
		MinRefundStars:   4,
		DeclineThreshold: 3,
		DeclineWindow:    7 * 24 * time.Hour,
		VoucherValidity:  30 * 24 * time.Hour,
	})
	if _, err := svc.Refunds.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("seed refund settings: %v", err)
	}

	r := gin.New()
	RegisterRoutes(r, svc.HandlerBundle(repos))
	return &harness{t: t, router: r, svc: svc}
}

func (h *harness) token(subject, role string) string {
	h.t.Helper()
	tok, err := utils.GenerateToken(subject, role, time.Hour)
	if err != nil {
		h.t.Fatalf("generate token: %v", err)
	}
	return tok
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			h.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *harness) createBooking(id, customerID string, fee int64) {
	h.t.Helper()
	w := h.do(http.MethodPost, "/api/bookings", h.token("ops", utils.RoleAdmin), models.CreateBookingInput{
		ID:         id,
		CustomerID: customerID,
		Service:    "solar",
		TotalPrice: 250000,
		LeadFee:    &fee,
	})
	if w.Code != http.StatusCreated {
		h.t.Fatalf("create booking: status %d body %s", w.Code, w.Body.String())
	}
}

func (h *harness) fund(installerID string, amount int64) {
	h.t.Helper()
	_, _, err := h.svc.Ledger.Post(context.Background(), models.PostEntry{
		Kind:        models.InstallerWallet,
		OwnerID:     installerID,
		Amount:      amount,
		Type:        models.TxAdjustment,
		Description: "opening balance",
	})
	if err != nil {
		h.t.Fatalf("fund wallet: %v", err)
	}
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body utils.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return body.Code
}

func TestClaimFlowChargesInstallerWallet(t *testing.T) {
	h := newHarness(t)
	h.createBooking("b1", "cust-1", 2500)
	h.fund("inst-1", 10000)

	installer := h.token("inst-1", utils.RoleInstaller)
	w := h.do(http.MethodPost, "/api/leads/b1/claim", installer, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("claim: status %d body %s", w.Code, w.Body.String())
	}

	w = h.do(http.MethodGet, "/api/wallets/installers/inst-1", installer, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("wallet: status %d body %s", w.Code, w.Body.String())
	}
	var wallet models.Wallet
	if err := json.Unmarshal(w.Body.Bytes(), &wallet); err != nil {
		t.Fatalf("decode wallet: %v", err)
	}
	if wallet.Balance != 7500 {
		t.Fatalf("balance = %d, want 7500", wallet.Balance)
	}

	w = h.do(http.MethodPost, "/api/leads/b1/claim", h.token("inst-2", utils.RoleInstaller), nil)
	if w.Code != http.StatusConflict || errorCode(t, w) != "AlreadyHeld" {
		t.Fatalf("second claim: status %d body %s", w.Code, w.Body.String())
	}
}

func TestClaimWithoutFundsIsPaymentRequired(t *testing.T) {
	h := newHarness(t)
	h.createBooking("b1", "cust-1", 2500)

	w := h.do(http.MethodPost, "/api/leads/b1/claim", h.token("inst-1", utils.RoleInstaller), nil)
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
	if got := errorCode(t, w); got != "InsufficientFunds" {
		t.Fatalf("code = %q", got)
	}
}

func TestRoutesEnforceRolesAndOwnership(t *testing.T) {
	h := newHarness(t)
	h.createBooking("b1", "cust-1", 100)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"no token", http.MethodGet, "/api/bookings/b1", "", http.StatusUnauthorized},
		{"customer cannot claim", http.MethodPost, "/api/leads/b1/claim", h.token("cust-1", utils.RoleCustomer), http.StatusForbidden},
		{"installer cannot create bookings", http.MethodPost, "/api/bookings", h.token("inst-1", utils.RoleInstaller), http.StatusForbidden},
		{"other installer wallet", http.MethodGet, "/api/wallets/installers/inst-2", h.token("inst-1", utils.RoleInstaller), http.StatusForbidden},
		{"admin reads any wallet", http.MethodGet, "/api/wallets/installers/inst-2", h.token("ops", utils.RoleAdmin), http.StatusOK},
		{"admin only settings", http.MethodGet, "/api/admin/refund-settings", h.token("cust-1", utils.RoleCustomer), http.StatusForbidden},
		{"unknown booking", http.MethodGet, "/api/bookings/missing", h.token("ops", utils.RoleAdmin), http.StatusNotFound},
	}
	for _, tc := range cases {
		w := h.do(tc.method, tc.path, tc.token, nil)
		if w.Code != tc.want {
			t.Fatalf("%s: status %d, want %d (body %s)", tc.name, w.Code, tc.want, w.Body.String())
		}
	}
}

func TestRateThenRefundReturnsStoredOutcome(t *testing.T) {
	h := newHarness(t)
	h.createBooking("b1", "cust-1", 100)
	h.fund("inst-1", 100)

	installer := h.token("inst-1", utils.RoleInstaller)
	w := h.do(http.MethodPost, "/api/leads/b1/claim", installer, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("claim: status %d body %s", w.Code, w.Body.String())
	}
	var claim struct {
		Job models.JobAssignment `json:"job"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &claim); err != nil {
		t.Fatalf("decode claim: %v", err)
	}
	for _, next := range []string{"accepted", "in_progress", "completed"} {
		w = h.do(http.MethodPost, "/api/jobs/"+claim.Job.ID+"/advance", installer, map[string]string{"status": next})
		if w.Code != http.StatusOK {
			t.Fatalf("advance to %s: status %d body %s", next, w.Code, w.Body.String())
		}
	}

	w = h.do(http.MethodPost, "/api/bookings/b1/rating", h.token("cust-1", utils.RoleCustomer), map[string]float64{"qualityStars": 4.5})
	if w.Code != http.StatusOK {
		t.Fatalf("rate: status %d body %s", w.Code, w.Body.String())
	}

	w = h.do(http.MethodPost, "/api/bookings/b1/refund", h.token("ops", utils.RoleAdmin), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("refund: status %d body %s", w.Code, w.Body.String())
	}
	var out models.RefundOutcome
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if !out.AlreadyProcessed || out.RefundAmount != 50 {
		t.Fatalf("outcome = %+v", out)
	}
}
