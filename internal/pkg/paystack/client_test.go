package paystack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestVerifyTransactionSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("invalid method"))
			return
		}
		if r.URL.Path != "/transaction/verify/dep_123" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("invalid path"))
			return
		}
		if r.Header.Get("Authorization") != "Bearer sk_test_secret" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("invalid auth"))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  true,
			"message": "Verification successful",
			"data": map[string]interface{}{
				"status":   "success",
				"amount":   100000,
				"currency": "NGN",
			},
		})
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{BaseURL: server.URL, SecretKey: "sk_test_secret", Timeout: time.Second})
	resp, err := client.VerifyTransaction(context.Background(), "dep_123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Success() {
		t.Fatalf("expected success, got status %q", resp.Status)
	}
	if resp.Amount != 100000 {
		t.Fatalf("expected amount 100000, got %d", resp.Amount)
	}
}

func TestInitiateTransferSendsReference(t *testing.T) {
	var got TransferRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transfer" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": true,
			"data": map[string]interface{}{
				"transfer_code": "TRF_abc",
				"reference":     got.Reference,
				"status":        "pending",
			},
		})
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{BaseURL: server.URL, SecretKey: "sk_test_secret", Timeout: time.Second})
	resp, err := client.InitiateTransfer(context.Background(), "RCP_xyz", 965000, "wd_42", "withdrawal")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Reference != "wd_42" || got.Source != "balance" || got.Amount != 965000 {
		t.Fatalf("unexpected request payload: %+v", got)
	}
	if resp.TransferCode != "TRF_abc" {
		t.Fatalf("expected transfer code TRF_abc, got %q", resp.TransferCode)
	}
}

func TestGatewayErrorSurfacesMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  false,
			"message": "Insufficient balance on integration",
		})
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{BaseURL: server.URL, SecretKey: "sk_test_secret", Timeout: time.Second})
	_, err := client.InitiateTransfer(context.Background(), "RCP_xyz", 1000, "wd_43", "")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestValidationErrors(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://localhost", SecretKey: "sk"})

	if _, err := client.InitializeTransaction(context.Background(), InitializeRequest{Amount: 0, Email: "a@b.c"}); err == nil {
		t.Fatal("expected error for zero amount")
	}
	if _, err := client.VerifyTransaction(context.Background(), " "); err == nil {
		t.Fatal("expected error for blank reference")
	}
	if _, err := client.InitiateTransfer(context.Background(), "RCP", 100, "", ""); err == nil {
		t.Fatal("expected error for missing reference")
	}
}
