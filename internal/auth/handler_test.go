package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := newTestService(t)
	router := gin.New()
	NewHandler(svc).RegisterRoutes(router.Group("/api/v1"))
	return router, svc
}

func postJSON(router http.Handler, path string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestRegisterEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	resp := postJSON(router, "/api/v1/auth/register", map[string]string{
		"email":     "a@x.com",
		"firstName": "A",
		"lastName":  "X",
		"password":  "pw",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var token Token
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if token.AccessToken == "" || token.TokenType != "bearer" {
		t.Fatalf("unexpected token: %+v", token)
	}

	dup := postJSON(router, "/api/v1/auth/register", map[string]string{
		"email":     "a@x.com",
		"firstName": "A",
		"lastName":  "X",
		"password":  "pw",
	})
	if dup.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", dup.Code)
	}

	bad := postJSON(router, "/api/v1/auth/register", map[string]string{"email": "b@x.com"})
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", bad.Code)
	}
}

func TestTokenEndpointAcceptsJSONAndForm(t *testing.T) {
	router, _ := newTestRouter(t)
	postJSON(router, "/api/v1/auth/register", map[string]string{
		"email": "a@x.com", "firstName": "A", "lastName": "X", "password": "pw",
	})

	resp := postJSON(router, "/api/v1/auth/token", map[string]string{"email": "a@x.com", "password": "pw"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for JSON login, got %d", resp.Code)
	}

	form := url.Values{"username": {"a@x.com"}, "password": {"pw"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	formResp := httptest.NewRecorder()
	router.ServeHTTP(formResp, req)
	if formResp.Code != http.StatusOK {
		t.Fatalf("expected 200 for form login, got %d", formResp.Code)
	}
}

func TestTokenEndpointRejectsBadCredentials(t *testing.T) {
	router, _ := newTestRouter(t)

	resp := postJSON(router, "/api/v1/auth/token", map[string]string{"email": "a@x.com", "password": "nope"})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if got := resp.Header().Get("WWW-Authenticate"); got != "Bearer" {
		t.Fatalf("expected WWW-Authenticate Bearer, got %q", got)
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "invalid_credentials" {
		t.Fatalf("unexpected code %q", body.Error.Code)
	}
}
