package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/relux-laundry/api/internal/auth"
	"github.com/relux-laundry/api/internal/enum"
)

var testTokens = auth.Tokens{
	Secret:        "test-secret",
	AccessExpire:  time.Hour,
	RefreshExpire: 24 * time.Hour,
}

func adminClaims() *auth.Claims {
	return &auth.Claims{UserID: uuid.New(), Role: enum.UserRoleAdmin}
}

func managerClaims() *auth.Claims {
	return &auth.Claims{UserID: uuid.New(), Role: enum.UserRoleManager}
}

func staffClaims() *auth.Claims {
	return &auth.Claims{UserID: uuid.New(), Role: enum.UserRoleStaff}
}

func customerClaims(customerID uuid.UUID) *auth.Claims {
	return &auth.Claims{UserID: uuid.New(), CustomerID: &customerID, Role: enum.UserRoleCustomer}
}

// doAuthRequest sends a request carrying a real signed token for claims.
func doAuthRequest(t *testing.T, router http.Handler, method, path string, body interface{}, claims *auth.Claims) *httptest.ResponseRecorder {
	t.Helper()

	token, err := testTokens.GenerateToken(claims.UserID, claims.CustomerID, claims.Role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	req := newRequest(t, method, path, body)
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return doRaw(router, newRequest(t, method, path, body))
}

func doRaw(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func newRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	if body == nil {
		return httptest.NewRequest(method, path, nil)
	}
	var b []byte
	switch v := body.(type) {
	case string:
		b = []byte(v)
	default:
		var err error
		if b, err = json.Marshal(body); err != nil {
			t.Fatalf("marshal request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rr.Body.String())
	}
	return resp
}

// expectError asserts a failure envelope with the given status and message.
func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("status: got %d, want %d (body: %s)", rr.Code, status, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["success"] != false {
		t.Errorf("success: got %v, want false", resp["success"])
	}
	if message != "" && resp["message"] != message {
		t.Errorf("message: got %v, want %q", resp["message"], message)
	}
}

func dataOf(t *testing.T, resp map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := resp["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("data is not an object: %v", resp["data"])
	}
	return data
}
