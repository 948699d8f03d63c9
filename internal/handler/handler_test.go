package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"sweet_shop/internal/events"
	"sweet_shop/internal/model"
	"sweet_shop/internal/repository"
	"sweet_shop/internal/service"
	"sweet_shop/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const password = "Sw33t&Sour"

func init() {
	gin.SetMode(gin.TestMode)
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	repos := repository.NewMemoryRepositories()
	logger := zerolog.Nop()
	auth := service.NewAuthService(repos.Users, utils.NewJWTUtil("handler-secret", time.Minute),
		service.AuthOptions{AdminUsernames: []string{"admin"}, BcryptCost: bcrypt.MinCost}, logger)

	router := NewRouter(Deps{
		Auth:       auth,
		Sweets:     service.NewSweetService(repos.Sweets, auth, events.NopPublisher{}, 10, logger),
		Categories: service.NewCategoryService(repos.Categories, repos.Sweets, auth, logger),
		Logger:     logger,
	})
	return &testServer{t: t, router: router}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// login registers username and returns a bearer token for it
func (s *testServer) login(username string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": username + "@example.com", "username": username, "password": password,
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": username, "password": password})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	decode(s.t, w, &resp)
	require.Equal(s.t, "bearer", resp.TokenType)
	return resp.AccessToken
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (s *testServer) createSweet(token, name string, price float64, qty int) model.Sweet {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/v1/sweets", token, gin.H{"name": name, "category": "Gummies", "price": price, "quantity": qty})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	var sw model.Sweet
	decode(s.t, w, &sw)
	return sw
}

func TestAuthRoutes(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "admin@example.com", "username": "admin", "password": password})
	require.Equal(t, http.StatusCreated, w.Code)
	var reg map[string]any
	decode(t, w, &reg)
	assert.Equal(t, true, reg["is_admin"])
	assert.NotEmpty(t, reg["user_id"])

	w = s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "other@example.com", "username": "admin", "password": password})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "weak@example.com", "username": "weakling", "password": "weakpass"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "password must be at least 8 characters")

	w = s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"username": "nomail"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "admin", "password": "Wr0ng!pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

	token := s.login("carol")
	w = s.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me model.UserProfile
	decode(t, w, &me)
	assert.Equal(t, "carol", me.Username)
	assert.False(t, me.IsAdmin)

	w = s.do(http.MethodGet, "/api/v1/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSweetRoutes_GummyBears(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin")
	user := s.login("dave")

	sw := s.createSweet(admin, "Gummy Bears", 1.75, 150)
	assert.Equal(t, 150, sw.Quantity)

	w := s.do(http.MethodPost, "/api/v1/sweets/"+sw.ID+"/purchase", user, gin.H{"quantity": 150})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var purchase model.PurchaseResult
	decode(t, w, &purchase)
	assert.Equal(t, 0, purchase.RemainingQuantity)

	w = s.do(http.MethodPost, "/api/v1/sweets/"+sw.ID+"/purchase", user, gin.H{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient")

	w = s.do(http.MethodPost, "/api/v1/sweets/"+sw.ID+"/restock", admin, gin.H{"quantity": 25})
	require.Equal(t, http.StatusOK, w.Code)
	var restock model.RestockResult
	decode(t, w, &restock)
	assert.Equal(t, 25, restock.NewQuantity)

	w = s.do(http.MethodGet, "/api/v1/sweets/"+sw.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got model.Sweet
	decode(t, w, &got)
	assert.Equal(t, 25, got.Quantity)
}

func TestSweetRoutes_NonAdminAlwaysForbidden(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin")
	user := s.login("erin")
	sw := s.createSweet(admin, "Licorice", 0.9, 10)

	tests := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPost, "/api/v1/sweets", gin.H{"name": "X", "category": "Y", "price": 1, "quantity": 1}},
		{http.MethodPost, "/api/v1/sweets", gin.H{"price": -5}},
		{http.MethodPost, "/api/v1/sweets", "not an object"},
		{http.MethodPut, "/api/v1/sweets/" + sw.ID, gin.H{"price": 2}},
		{http.MethodPut, "/api/v1/sweets/not-a-uuid", nil},
		{http.MethodDelete, "/api/v1/sweets/" + sw.ID, nil},
		{http.MethodPost, "/api/v1/sweets/" + sw.ID + "/restock", gin.H{"quantity": 0}},
		{http.MethodPost, "/api/v1/categories", gin.H{"name": "New"}},
		{http.MethodPut, "/api/v1/categories/" + sw.ID, gin.H{}},
		{http.MethodDelete, "/api/v1/categories/" + sw.ID, nil},
		{http.MethodPut, "/api/v1/admin/users/erin/role", gin.H{"role": "admin"}},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := s.do(tt.method, tt.path, user, tt.body)
			assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
		})
	}

	w := s.do(http.MethodPost, "/api/v1/sweets", "", gin.H{"name": "X"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSweetRoutes_CRUDAndSearch(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin")
	s.createSweet(admin, "Chocolate Bar", 2.5, 50)
	sw := s.createSweet(admin, "Sour Patch", 1.25, 80)

	w := s.do(http.MethodPost, "/api/v1/sweets", admin, gin.H{"name": "Sour Patch", "category": "Gummies", "price": 1, "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, "/api/v1/sweets/"+sw.ID, admin, gin.H{"price": 1.5})
	require.Equal(t, http.StatusOK, w.Code)
	var updated model.Sweet
	decode(t, w, &updated)
	assert.Equal(t, 1.5, updated.Price)
	assert.Equal(t, 80, updated.Quantity)

	var list []model.Sweet
	w = s.do(http.MethodGet, "/api/v1/sweets/search?name=CHOC", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Chocolate Bar", list[0].Name)

	w = s.do(http.MethodGet, "/api/v1/sweets/search?price_min=1&price_max=1.5", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Sour Patch", list[0].Name)

	w = s.do(http.MethodGet, "/api/v1/sweets/search?price_min=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(http.MethodGet, "/api/v1/sweets/search?price_min=5&price_max=1", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/v1/sweets/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodDelete, "/api/v1/sweets/"+sw.ID, admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodGet, "/api/v1/sweets/"+sw.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/v1/sweets", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	assert.Len(t, list, 1)
}

func TestSweetRoutes_PurchaseValidation(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin")
	user := s.login("frank")
	sw := s.createSweet(admin, "Mint", 0.1, 5)

	w := s.do(http.MethodPost, "/api/v1/sweets/"+sw.ID+"/purchase", "", gin.H{"quantity": 1})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(http.MethodPost, "/api/v1/sweets/"+sw.ID+"/purchase", user, gin.H{"quantity": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(http.MethodPost, "/api/v1/sweets/"+sw.ID+"/purchase", user, gin.H{"quantity": -3})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(http.MethodPost, "/api/v1/sweets/00000000-0000-4000-8000-000000000000/purchase", user, gin.H{"quantity": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSweetRoutes_ConcurrentPurchase(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin")
	user := s.login("grace")
	sw := s.createSweet(admin, "Rock Candy", 0.5, 100)

	codes := make([]int, 2)
	var wg sync.WaitGroup
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body, _ := json.Marshal(gin.H{"quantity": 60})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/sweets/"+sw.ID+"/purchase", bytes.NewReader(body))
			req.Header.Set("Authorization", "Bearer "+user)
			w := httptest.NewRecorder()
			s.router.ServeHTTP(w, req)
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	assert.ElementsMatch(t, []int{http.StatusOK, http.StatusBadRequest}, codes)
	w := s.do(http.MethodGet, "/api/v1/sweets/"+sw.ID, "", nil)
	var got model.Sweet
	decode(t, w, &got)
	assert.Equal(t, 40, got.Quantity)
}

func TestCategoryRoutes(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin")

	w := s.do(http.MethodPost, "/api/v1/categories", admin, gin.H{"name": "Gummies", "description": "chewy"})
	require.Equal(t, http.StatusCreated, w.Code)
	var gummies model.Category
	decode(t, w, &gummies)
	assert.True(t, gummies.IsActive)

	w = s.do(http.MethodPost, "/api/v1/categories", admin, gin.H{"name": "Seasonal", "is_active": false})
	require.Equal(t, http.StatusCreated, w.Code)
	w = s.do(http.MethodPost, "/api/v1/categories", admin, gin.H{"name": "Seasonal"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var list []model.Category
	w = s.do(http.MethodGet, "/api/v1/categories?active_only=true", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Gummies", list[0].Name)

	w = s.do(http.MethodGet, "/api/v1/categories", "", nil)
	decode(t, w, &list)
	assert.Len(t, list, 2)

	w = s.do(http.MethodGet, "/api/v1/categories?active_only=maybe", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, "/api/v1/categories/"+gummies.ID, admin, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no valid fields to update")
	w = s.do(http.MethodPut, "/api/v1/categories/"+gummies.ID, admin, gin.H{"description": "chewy"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no changes made")

	s.createSweet(admin, "Gummy Worms", 1, 10)
	w = s.do(http.MethodGet, "/api/v1/categories/"+gummies.ID+"/sweets", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sweets []model.Sweet
	decode(t, w, &sweets)
	require.Len(t, sweets, 1)
	assert.Equal(t, "Gummy Worms", sweets[0].Name)

	w = s.do(http.MethodDelete, "/api/v1/categories/"+gummies.ID, admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodGet, "/api/v1/categories/00000000-0000-4000-8000-000000000000", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminRoutes_SetRole(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin")
	user := s.login("heidi")

	w := s.do(http.MethodPut, "/api/v1/admin/users/heidi/role", admin, gin.H{"role": "admin"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// promoted user can now use admin routes with the same token
	s.createSweet(user, "Praline", 3, 3)

	w = s.do(http.MethodPut, "/api/v1/admin/users/nobody/role", admin, gin.H{"role": "admin"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(http.MethodPut, "/api/v1/admin/users/heidi/role", admin, gin.H{"role": "owner"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/v1/admin/users", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var users []model.UserProfile
	decode(t, w, &users)
	assert.Len(t, users, 2)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestHealth(t *testing.T) {
	for _, tt := range []struct {
		name   string
		db     Pinger
		status int
	}{
		{"memory", nil, http.StatusOK},
		{"healthy", pinger{}, http.StatusOK},
		{"down", pinger{err: errors.New("refused")}, http.StatusServiceUnavailable},
	} {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRouter(Deps{DB: tt.db, Logger: zerolog.Nop()})
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(fmt.Errorf("wrapped: %w", service.ErrInvalidInput)))
	assert.Equal(t, http.StatusConflict, statusFor(fmt.Errorf("%w (2 sweets)", service.ErrCategoryInUse)))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("connection reset")))
}
