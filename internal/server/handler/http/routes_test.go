package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/atinyakov/bcards/internal/auth"
	"github.com/atinyakov/bcards/internal/repository/memory"
	handler "github.com/atinyakov/bcards/internal/server/handler/http"
	"github.com/atinyakov/bcards/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type api struct {
	t *testing.T
	h http.Handler
}

func newAPI(t *testing.T) *api {
	store := memory.New()
	tokens := auth.NewTokenAuth("test-secret", time.Hour)
	users := service.NewUserService(store, service.WithHashCost(bcrypt.MinCost))
	cards := service.NewCardService(store, store)
	router := handler.NewRouter(
		&handler.CardHandler{Cards: cards, Log: zap.NewNop()},
		&handler.UserHandler{Users: users, Auth: service.NewAuthService(store, tokens), Log: zap.NewNop()},
		tokens,
		zap.NewNop(),
		handler.RouterOptions{CORSOrigins: []string{"*"}, Metrics: http.NotFoundHandler()},
	)
	return &api{t: t, h: router}
}

func (a *api) do(method, path, token string, body any) (int, map[string]any) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

// doRaw sends body verbatim as JSON.
func (a *api) doRaw(method, path, token, body string) (int, map[string]any) {
	a.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func userBody(email string, isBusiness bool) map[string]any {
	return map[string]any{
		"name":     map[string]any{"first": "Dana", "last": "Levi"},
		"phone":    "050-7654321",
		"email":    email,
		"password": "Abc123!x",
		"image":    map[string]any{"url": "https://img.example.com/dana.png"},
		"address": map[string]any{
			"country": "Israel", "city": "Tel Aviv", "street": "Dizengoff", "houseNumber": 10, "zip": "6433",
		},
		"isBusiness": isBusiness,
	}
}

func cardBody(title string) map[string]any {
	return map[string]any{
		"title":       title,
		"subtitle":    "Family practice",
		"description": "Check-ups and cleaning",
		"phone":       "050-1234567",
		"email":       "clinic@example.com",
		"web":         "https://clinic.example.com",
		"image":       map[string]any{"url": "https://img.example.com/clinic.png"},
		"address": map[string]any{
			"country": "Israel", "city": "Haifa", "street": "Herzl", "houseNumber": 12, "zip": "3303",
		},
	}
}

// register creates a user and returns its id and a session token.
func (a *api) register(email string, isBusiness bool) (string, string) {
	a.t.Helper()
	status, body := a.do(http.MethodPost, "/api/users", "", userBody(email, isBusiness))
	require.Equal(a.t, http.StatusCreated, status, body)
	id := body["created"].(map[string]any)["_id"].(string)

	status, body = a.do(http.MethodPost, "/api/users/login", "", map[string]any{"email": email, "password": "Abc123!x"})
	require.Equal(a.t, http.StatusOK, status, body)
	return id, body["token"].(string)
}

func TestCardsLifecycle(t *testing.T) {
	a := newAPI(t)
	ownerID, owner := a.register("owner@example.com", true)
	_, visitor := a.register("visitor@example.com", false)

	status, body := a.do(http.MethodPost, "/api/cards", owner, cardBody("Dental clinic"))
	require.Equal(t, http.StatusCreated, status, body)
	created := body["created"].(map[string]any)
	cardID := created["_id"].(string)
	assert.Equal(t, float64(1), created["bizNumber"])
	assert.Equal(t, ownerID, created["user_id"])
	assert.Equal(t, []any{}, created["likes"])

	status, _ = a.do(http.MethodPost, "/api/cards", visitor, cardBody("Nope"))
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = a.do(http.MethodPost, "/api/cards", "", cardBody("Nope"))
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = a.do(http.MethodGet, "/api/cards", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, body = a.do(http.MethodGet, "/api/cards/"+cardID, "", nil)
	require.Equal(t, http.StatusOK, status)
	owned := body["data"].(map[string]any)["owner"].(map[string]any)
	assert.Equal(t, "owner@example.com", owned["email"])

	status, body = a.do(http.MethodPatch, "/api/cards/"+cardID, visitor, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Len(t, body["data"].(map[string]any)["likes"], 1)
	assert.Contains(t, body["message"], "has been liked")

	status, body = a.do(http.MethodPut, "/api/cards/"+cardID, visitor, map[string]any{"title": "Hijacked"})
	assert.Equal(t, http.StatusForbidden, status, body)

	status, body = a.do(http.MethodPut, "/api/cards/"+cardID, owner, map[string]any{"title": "Dental care"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Dental care", body["updated"].(map[string]any)["title"])

	status, body = a.do(http.MethodGet, "/api/cards/my-cards", owner, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, body = a.do(http.MethodDelete, "/api/cards/"+cardID, owner, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, cardID, body["deleted"].(map[string]any)["_id"])

	status, body = a.do(http.MethodGet, "/api/cards/"+cardID, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, false, body["success"])
}

func TestCardWrites_AuthorizationBeforeBody(t *testing.T) {
	a := newAPI(t)
	_, owner := a.register("owner@example.com", true)
	_, visitor := a.register("visitor@example.com", false)

	status, body := a.do(http.MethodPost, "/api/cards", owner, cardBody("Dental clinic"))
	require.Equal(t, http.StatusCreated, status, body)
	cardID := body["created"].(map[string]any)["_id"].(string)
	path := "/api/cards/" + cardID

	for name, raw := range map[string]string{
		"malformed": "{not json",
		"empty":     "",
		"no fields": "{}",
		"identical": `{"title":"Dental clinic"}`,
	} {
		status, body = a.doRaw(http.MethodPut, path, visitor, raw)
		assert.Equal(t, http.StatusForbidden, status, "%s: %v", name, body)
	}

	status, body = a.doRaw(http.MethodPost, "/api/cards", "", "{not json")
	assert.Equal(t, http.StatusUnauthorized, status, body)

	status, body = a.doRaw(http.MethodPost, "/api/cards", visitor, "{not json")
	assert.Equal(t, http.StatusForbidden, status, body)

	// once authorized, the decode failure is reported
	status, body = a.doRaw(http.MethodPut, path, owner, "{not json")
	assert.Equal(t, http.StatusBadRequest, status, body)
	assert.Contains(t, body["message"].([]any)[0], "request body must be valid JSON")

	status, body = a.doRaw(http.MethodPost, "/api/cards", owner, "{not json")
	assert.Equal(t, http.StatusBadRequest, status, body)
	assert.Contains(t, body["message"].([]any)[0], "request body must be valid JSON")
}

func TestCardSearch(t *testing.T) {
	a := newAPI(t)
	_, owner := a.register("owner@example.com", true)
	status, _ := a.do(http.MethodPost, "/api/cards", owner, cardBody("Dental clinic"))
	require.Equal(t, http.StatusCreated, status)

	status, body := a.do(http.MethodPost, "/api/cards/search", "", map[string]any{
		"searchTerm": "DENT", "searchFields": []string{"title", "address.city"},
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Len(t, body["data"], 1)

	status, body = a.do(http.MethodPost, "/api/cards/search", "", map[string]any{
		"searchTerm": "bakery", "searchFields": []string{"title"},
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, []any{}, body["data"])

	status, body = a.do(http.MethodPost, "/api/cards/search", "", map[string]any{"searchTerm": "x"})
	assert.Equal(t, http.StatusBadRequest, status, body)
	assert.IsType(t, []any{}, body["message"])
}

func TestMalformedCardIDIsNotFound(t *testing.T) {
	a := newAPI(t)
	status, body := a.do(http.MethodGet, "/api/cards/not-an-id", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body["message"], "invalid format for card id")
}

func TestInvalidTokenAndContentType(t *testing.T) {
	a := newAPI(t)
	status, _ := a.do(http.MethodGet, "/api/cards/my-cards", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	req := httptest.NewRequest(http.MethodPost, "/api/users", bytes.NewBufferString("name=x"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestUsersEndpoints(t *testing.T) {
	a := newAPI(t)
	id, token := a.register("dana@example.com", false)
	otherID, _ := a.register("other@example.com", false)

	status, body := a.do(http.MethodPost, "/api/users", "", userBody("DANA@example.com", false))
	assert.Equal(t, http.StatusConflict, status, body)

	status, body = a.do(http.MethodGet, "/api/users/"+id, token, nil)
	require.Equal(t, http.StatusOK, status, body)
	data := body["data"].(map[string]any)
	assert.Equal(t, "dana@example.com", data["email"])
	assert.NotContains(t, data, "password")
	assert.NotContains(t, data, "PasswordHash")

	status, _ = a.do(http.MethodGet, "/api/users/"+otherID, token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = a.do(http.MethodGet, "/api/users", token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = a.do(http.MethodPatch, "/api/users/"+id, token, map[string]any{"isBusiness": true})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, true, body["updated"].(map[string]any)["isBusiness"])

	status, _ = a.do(http.MethodPatch, "/api/users/"+id, token, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = a.doRaw(http.MethodPatch, "/api/users/"+otherID, token, "{not json")
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = a.doRaw(http.MethodPut, "/api/users/"+otherID, token, "{}")
	assert.Equal(t, http.StatusForbidden, status)

	status, body = a.do(http.MethodPut, "/api/users/"+id, token, map[string]any{"phone": "052-1111111"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "052-1111111", body["updated"].(map[string]any)["phone"])

	status, body = a.do(http.MethodPost, "/api/users/login", "", map[string]any{"email": "dana@example.com", "password": "Wrong1!x"})
	assert.Equal(t, http.StatusUnauthorized, status, body)

	status, _ = a.do(http.MethodDelete, "/api/users/"+id, token, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestHealthz(t *testing.T) {
	a := newAPI(t)
	status, body := a.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}
