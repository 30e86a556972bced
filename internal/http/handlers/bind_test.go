package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JeandreDegenaar/q1-profiles/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

type sampleRequest struct {
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone" binding:"omitempty,len=10,numeric"`
	Age   int    `json:"age"`
}

func newBindTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.POST("/bind", func(ctx *gin.Context) {
		var req sampleRequest
		if !handlers.BindJSON(ctx, &req) {
			return
		}
		ctx.Status(http.StatusOK)
	})

	return r
}

func bindMessage(t *testing.T, body string) (int, string) {
	t.Helper()

	r := newBindTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/bind", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code == http.StatusOK {
		return w.Code, ""
	}

	var resp struct {
		Message string `json:"message"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error body %s: %v", w.Body.String(), err)
	}

	return w.Code, resp.Message
}

func TestBindJSON_MissingRequiredField(t *testing.T) {
	code, msg := bindMessage(t, `{}`)

	if code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", code, http.StatusBadRequest)
	}

	if msg != `Field "email" is required` {
		t.Fatalf("got message %q", msg)
	}
}

func TestBindJSON_InvalidEmail(t *testing.T) {
	code, msg := bindMessage(t, `{"email":"nope"}`)

	if code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", code, http.StatusBadRequest)
	}

	if msg != `Field "email" must be a valid email address` {
		t.Fatalf("got message %q", msg)
	}
}

func TestBindJSON_WrongLength(t *testing.T) {
	code, msg := bindMessage(t, `{"email":"a@b.com","phone":"123"}`)

	if code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", code, http.StatusBadRequest)
	}

	if msg != `Field "phone" must be exactly 10 characters` {
		t.Fatalf("got message %q", msg)
	}
}

func TestBindJSON_TypeMismatch(t *testing.T) {
	code, msg := bindMessage(t, `{"email":"a@b.com","age":"ten"}`)

	if code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", code, http.StatusBadRequest)
	}

	if msg != `Field "age" has an invalid type` {
		t.Fatalf("got message %q", msg)
	}
}

func TestBindJSON_InvalidJSON(t *testing.T) {
	code, msg := bindMessage(t, `{not-json`)

	if code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", code, http.StatusBadRequest)
	}

	if msg != "Invalid request body" {
		t.Fatalf("got message %q", msg)
	}
}

func TestBindJSON_ValidBody(t *testing.T) {
	code, _ := bindMessage(t, `{"email":"a@b.com","phone":"0123456789","age":30}`)

	if code != http.StatusOK {
		t.Fatalf("got status %d, want %d", code, http.StatusOK)
	}
}
