package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JeandreDegenaar/q1-profiles/internal/cache"
	"github.com/JeandreDegenaar/q1-profiles/internal/config"
	apphttp "github.com/JeandreDegenaar/q1-profiles/internal/http"
	"github.com/JeandreDegenaar/q1-profiles/internal/repo/memory"
	"github.com/gin-gonic/gin"
)

func testConfig() config.Config {
	return config.Config{
		Env:        "test",
		Port:       0,
		DBURL:      "unused",
		JWTSecret:  "test-secret-key",
		JWTTTL:     time.Hour,
		BcryptCost: 4,
	}
}

func setupRouter(t *testing.T) (*gin.Engine, *memory.UsersRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

	repo := memory.NewUsersRepo()
	profileCache := cache.NewMemory(time.Second)

	router := apphttp.NewRouter(logger, repo, profileCache, nil, nil, nil, testConfig())

	return router, repo
}

func doRequest(router http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))

	if method == http.MethodPost || method == http.MethodPut {
		req.Header.Set("Content-Type", "application/json")
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

type tokenResponse struct {
	Token string `json:"token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func mustReadJSON[T any](t *testing.T, w *httptest.ResponseRecorder, out *T) {
	t.Helper()
	err := json.Unmarshal(w.Body.Bytes(), out)
	if err != nil {
		t.Fatalf("failed to unmarshal json: %v, body=%s", err, w.Body.String())
	}
}

func signup(t *testing.T, router http.Handler, body string) string {
	t.Helper()

	w := doRequest(router, http.MethodPost, "/signup", body, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("signup got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	var tok tokenResponse
	mustReadJSON(t, w, &tok)

	if strings.TrimSpace(tok.Token) == "" {
		t.Fatalf("signup expected token, got empty")
	}

	return tok.Token
}

const aliceSignup = `{"username":"alice_01","password":"secret1","email":"a@b.com","dob":"2000-01-01"}`

func TestSignupThenProfile(t *testing.T) {
	router, _ := setupRouter(t)

	token := signup(t, router, aliceSignup)

	w := doRequest(router, http.MethodGet, "/profile", "", map[string]string{"Authorization": token})

	if w.Code != http.StatusOK {
		t.Fatalf("profile got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	var profile struct {
		Username string  `json:"username"`
		Email    string  `json:"email"`
		Phone    *string `json:"phone"`
		DOB      string  `json:"dob"`
	}
	mustReadJSON(t, w, &profile)

	if profile.Username != "alice_01" || profile.Email != "a@b.com" || profile.DOB != "2000-01-01" {
		t.Fatalf("unexpected profile: %s", w.Body.String())
	}

	if profile.Phone != nil {
		t.Fatalf("expected null phone, got %q", *profile.Phone)
	}

	if strings.Contains(strings.ToLower(w.Body.String()), "password") {
		t.Fatalf("profile response leaks password data: %s", w.Body.String())
	}
}

func TestSignup_DuplicateUsername(t *testing.T) {
	router, repo := setupRouter(t)

	signup(t, router, aliceSignup)

	w := doRequest(router, http.MethodPost, "/signup",
		`{"username":"alice_01","password":"other","email":"other@b.com","dob":"1999-05-05"}`, nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}

	var resp messageResponse
	mustReadJSON(t, w, &resp)

	if resp.Message != "Username or email already exists" {
		t.Fatalf("got message %q", resp.Message)
	}

	if repo.Len() != 1 {
		t.Fatalf("duplicate signup must not add a record, have %d", repo.Len())
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	router, _ := setupRouter(t)

	signup(t, router, aliceSignup)

	w := doRequest(router, http.MethodPost, "/signup",
		`{"username":"bob_01","password":"other","email":"a@b.com","dob":"1999-05-05"}`, nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}
}

func TestSignup_UsernameWithSpace(t *testing.T) {
	router, repo := setupRouter(t)

	w := doRequest(router, http.MethodPost, "/signup",
		`{"username":"al ice","password":"secret1","email":"a@b.com","dob":"2000-01-01"}`, nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}

	var resp messageResponse
	mustReadJSON(t, w, &resp)

	if !strings.Contains(resp.Message, `"username"`) {
		t.Fatalf("message must name the offending field, got %q", resp.Message)
	}

	if repo.Len() != 0 {
		t.Fatalf("rejected signup must not store a record")
	}
}

func TestSignup_InvalidPhone(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodPost, "/signup",
		`{"username":"alice_01","password":"secret1","email":"a@b.com","phone":"12345","dob":"2000-01-01"}`, nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}
}

func TestLogin(t *testing.T) {
	router, _ := setupRouter(t)

	signup(t, router, aliceSignup)

	w := doRequest(router, http.MethodPost, "/login", `{"username":"alice_01","password":"secret1"}`, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("login got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	var tok tokenResponse
	mustReadJSON(t, w, &tok)

	if tok.Token == "" {
		t.Fatalf("login expected token")
	}
}

func TestLogin_BadCredentialsAreIndistinguishable(t *testing.T) {
	router, _ := setupRouter(t)

	signup(t, router, aliceSignup)

	wrongPassword := doRequest(router, http.MethodPost, "/login",
		`{"username":"alice_01","password":"nope"}`, nil)
	unknownUser := doRequest(router, http.MethodPost, "/login",
		`{"username":"who_is_this","password":"nope"}`, nil)

	if wrongPassword.Code != http.StatusUnauthorized || unknownUser.Code != http.StatusUnauthorized {
		t.Fatalf("got statuses %d and %d, want both %d", wrongPassword.Code, unknownUser.Code, http.StatusUnauthorized)
	}

	if wrongPassword.Body.String() != unknownUser.Body.String() {
		t.Fatalf("bodies must match: %s vs %s", wrongPassword.Body.String(), unknownUser.Body.String())
	}

	var resp messageResponse
	mustReadJSON(t, wrongPassword, &resp)

	if resp.Message != "Invalid username or password" {
		t.Fatalf("got message %q", resp.Message)
	}
}

func TestProfile_RequiresToken(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodGet, "/profile", "", nil)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusUnauthorized)
	}

	var resp messageResponse
	mustReadJSON(t, w, &resp)

	if resp.Message != "No token provided" {
		t.Fatalf("got message %q", resp.Message)
	}

	w = doRequest(router, http.MethodGet, "/profile", "", map[string]string{"Authorization": "garbage"})

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusUnauthorized)
	}

	mustReadJSON(t, w, &resp)

	if resp.Message != "Invalid token" {
		t.Fatalf("got message %q", resp.Message)
	}
}

func TestUpdateProfile_WithoutTokenLeavesStoreUntouched(t *testing.T) {
	router, repo := setupRouter(t)

	signup(t, router, aliceSignup)

	w := doRequest(router, http.MethodPut, "/profile",
		`{"username":"evil_01","email":"evil@b.com","phone":"0123456789","dob":"1990-01-01"}`, nil)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusUnauthorized)
	}

	u, err := repo.GetByUsername(context.Background(), "alice_01")

	if err != nil {
		t.Fatalf("original record gone: %v", err)
	}

	if u.Email != "a@b.com" {
		t.Fatalf("store mutated by unauthenticated request: %+v", u)
	}
}

func TestUpdateProfile(t *testing.T) {
	router, _ := setupRouter(t)

	token := signup(t, router, aliceSignup)
	authHeader := map[string]string{"Authorization": token}

	// prime the cache so the update has something to invalidate
	if w := doRequest(router, http.MethodGet, "/profile", "", authHeader); w.Code != http.StatusOK {
		t.Fatalf("profile got status %d, body=%s", w.Code, w.Body.String())
	}

	w := doRequest(router, http.MethodPut, "/profile",
		`{"username":"alice_02","email":"a2@b.com","phone":"0123456789","dob":"2000-01-01"}`, authHeader)

	if w.Code != http.StatusOK {
		t.Fatalf("update got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	// a fresh read must see the update, not a stale cached profile
	w = doRequest(router, http.MethodGet, "/profile", "", authHeader)

	if w.Code != http.StatusOK {
		t.Fatalf("profile got status %d, body=%s", w.Code, w.Body.String())
	}

	var profile struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
	}
	mustReadJSON(t, w, &profile)

	if profile.Username != "alice_02" || profile.Email != "a2@b.com" || profile.Phone != "0123456789" {
		t.Fatalf("unexpected updated profile: %s", w.Body.String())
	}
}

func TestUpdateProfile_MissingFields(t *testing.T) {
	router, _ := setupRouter(t)

	token := signup(t, router, aliceSignup)

	w := doRequest(router, http.MethodPut, "/profile",
		`{"username":"alice_02","email":"a2@b.com"}`, map[string]string{"Authorization": token})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}

	var resp messageResponse
	mustReadJSON(t, w, &resp)

	if resp.Message != "All fields are required" {
		t.Fatalf("got message %q", resp.Message)
	}
}

func TestMutatingRoutesRequireJSONContentType(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/signup", bytes.NewBufferString(aliceSignup))
	// no Content-Type
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusUnsupportedMediaType)
	}
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	router, _ := setupRouter(t)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		w := doRequest(router, http.MethodGet, path, "", nil)

		if w.Code != http.StatusOK {
			t.Fatalf("%s got status %d, want %d", path, w.Code, http.StatusOK)
		}
	}
}
