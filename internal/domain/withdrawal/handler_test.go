package withdrawal_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/spotlyte/spotlyte-api/internal/domain/withdrawal"
	"github.com/spotlyte/spotlyte-api/internal/middleware"
)

func newTestHandler() *withdrawal.Handler {
	// Only input validation paths run here, so the service stays nil-free of
	// database access.
	return withdrawal.NewHandler(withdrawal.NewService(nil, nil, nil, nil, nil, "NGN"))
}

func doRequest(t *testing.T, handler http.HandlerFunc, userID uuid.UUID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if userID != uuid.Nil {
		ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
		req = req.WithContext(ctx)
	}
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestCreateWithdrawalUnauthorized(t *testing.T) {
	h := newTestHandler()
	rr := doRequest(t, h.Create, uuid.Nil, `{"amount":"500"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestCreateWithdrawalInvalidJSON(t *testing.T) {
	h := newTestHandler()
	rr := doRequest(t, h.Create, uuid.New(), `{"amount":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestCreateWithdrawalValidation(t *testing.T) {
	h := newTestHandler()

	cases := []struct {
		name string
		body string
		want int
	}{
		{"missing amount", `{"account_number":"0123456789"}`, http.StatusUnprocessableEntity},
		{"bad amount string", `{"amount":"abc","account_name":"A B","account_number":"0123456789","bank_name":"GTBank","bank_code":"058"}`, http.StatusBadRequest},
		{"bad account number", `{"amount":"500","account_number":"12ab"}`, http.StatusUnprocessableEntity},
		{"bad bank code", `{"amount":"500","account_name":"A B","account_number":"0123456789","bank_name":"GTBank","bank_code":"xx"}`, http.StatusUnprocessableEntity},
		{"bad bank account id", `{"amount":"500","bank_account_id":"not-a-uuid"}`, http.StatusUnprocessableEntity},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doRequest(t, h.Create, uuid.New(), tc.body)
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rr.Code, rr.Body.String())
			}

			var resp struct {
				Success bool `json:"success"`
			}
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid response body: %v", err)
			}
			if resp.Success {
				t.Fatal("error responses must not report success")
			}
		})
	}
}

func TestCreateBankAccountValidation(t *testing.T) {
	h := newTestHandler()

	rr := doRequest(t, h.CreateBankAccount, uuid.New(), `{"account_name":"A","account_number":"0123456789","bank_name":"GTBank","bank_code":"058"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for short account name, got %d", rr.Code)
	}

	rr = doRequest(t, h.CreateBankAccount, uuid.Nil, `{}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}
