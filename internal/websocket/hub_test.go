package websocket

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func wsRequest(token string) *http.Request {
	url := "/api/v1/ws"
	if token != "" {
		url += "?token=" + token
	}
	return httptest.NewRequest(http.MethodGet, url, nil)
}

func sessionClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"session_id": uuid.NewString(),
		"exp":        time.Now().Add(time.Hour).Unix(),
	}
}

func TestHandleWebSocket_MissingToken(t *testing.T) {
	hub := NewHub(nil, "test-secret")

	rr := httptest.NewRecorder()
	hub.HandleWebSocket(rr, wsRequest(""))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("Expected status 401, got %d", rr.Code)
	}
}

func TestHandleWebSocket_RejectsNonHMACToken(t *testing.T) {
	hub := NewHub(nil, "test-secret")

	// alg=none token: must be rejected by the signing-method check, not
	// accepted because the keyfunc returned a key.
	token := jwt.NewWithClaims(jwt.SigningMethodNone, sessionClaims())
	tokenStr, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	rr := httptest.NewRecorder()
	hub.HandleWebSocket(rr, wsRequest(tokenStr))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("Expected status 401 for alg=none token, got %d", rr.Code)
	}
}

func TestHandleWebSocket_RejectsWrongSecret(t *testing.T) {
	hub := NewHub(nil, "test-secret")

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims())
	tokenStr, err := token.SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	rr := httptest.NewRecorder()
	hub.HandleWebSocket(rr, wsRequest(tokenStr))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("Expected status 401 for wrong secret, got %d", rr.Code)
	}
}

func TestHandleWebSocket_RejectsTokenWithoutSessionID(t *testing.T) {
	hub := NewHub(nil, "test-secret")

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	tokenStr, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	rr := httptest.NewRecorder()
	hub.HandleWebSocket(rr, wsRequest(tokenStr))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("Expected status 401 for token without session id, got %d", rr.Code)
	}
}
