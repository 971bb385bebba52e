package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/geocoder89/bookstore/internal/auth"
	"github.com/geocoder89/bookstore/internal/cache"
	"github.com/geocoder89/bookstore/internal/domain/account"
	"github.com/geocoder89/bookstore/internal/domain/review"
	"github.com/geocoder89/bookstore/internal/domain/role"
	apphttp "github.com/geocoder89/bookstore/internal/http"
	"github.com/geocoder89/bookstore/internal/observability"
	"github.com/geocoder89/bookstore/internal/repo/memory"
	"github.com/geocoder89/bookstore/internal/security"
	"github.com/geocoder89/bookstore/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const testSecret = "integration-test-secret"

type testApp struct {
	router  *gin.Engine
	store   *memory.Store
	tokens  *auth.Manager
	reg     *prometheus.Registry
	uploads string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()

	tokens, err := auth.NewManager(testSecret, time.Hour)
	require.NoError(t, err)

	uploads := t.TempDir()
	images, err := storage.NewLocalStore(uploads)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := apphttp.NewRouter(logger, apphttp.Deps{
		Env:            "test",
		Accounts:       store.Accounts(),
		Books:          store.Books(),
		Reviews:        store.Reviews(),
		Tokens:         tokens,
		Cache:          cache.NewMemory(time.Minute),
		Images:         images,
		UploadDir:      uploads,
		Prom:           observability.NewProm(reg),
		Gatherer:       reg,
		CORSOrigins:    []string{"http://localhost:3000"},
		MaxBodyBytes:   1 << 20,
		MaxUploadBytes: 1 << 20,
	})

	return &testApp{router: router, store: store, tokens: tokens, reg: reg, uploads: uploads}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// doForm sends a multipart form; file may be nil.
func (a *testApp) doForm(t *testing.T, method, path, token string, fields map[string]string, file []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		fw, err := mw.CreateFormFile("image", "cover.png")
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body=%s", w.Body.String())
	return out
}

type tokenResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

type bindErrorResponse struct {
	Message string `json:"message"`
	Details struct {
		Fields []struct {
			Field string `json:"field"`
			Rule  string `json:"rule"`
		} `json:"fields"`
	} `json:"details"`
}

type reviewUpdateResponse struct {
	Message string        `json:"message"`
	Review  review.Review `json:"review"`
}

type messageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (a *testApp) register(t *testing.T, name, email string) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/register", "", map[string]string{
		"name": name, "email": email, "password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[tokenResponse](t, w).Token
}

// seedAdmin inserts an administrator directly, as the bootstrap would.
func (a *testApp) seedAdmin(t *testing.T) (account.Account, string) {
	t.Helper()

	hash, err := security.HashPassword("admin-password")
	require.NoError(t, err)

	admin, err := a.store.Accounts().Create(context.Background(), account.NewAccount{
		Name: "Admin", Email: "admin@example.com", PasswordHash: hash, Role: role.Admin,
	})
	require.NoError(t, err)

	token, err := a.tokens.Issue(admin.ID, admin.Email, admin.Role)
	require.NoError(t, err)

	return admin, token
}

func (a *testApp) uploadedFiles(t *testing.T) []string {
	t.Helper()

	entries, err := os.ReadDir(a.uploads)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
