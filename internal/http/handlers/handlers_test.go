package handlers_test

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geocoder89/bookstore/internal/actorctx"
	"github.com/geocoder89/bookstore/internal/auth"
	"github.com/geocoder89/bookstore/internal/cache"
	"github.com/geocoder89/bookstore/internal/domain/account"
	"github.com/geocoder89/bookstore/internal/domain/book"
	"github.com/geocoder89/bookstore/internal/domain/review"
	"github.com/geocoder89/bookstore/internal/domain/role"
	"github.com/geocoder89/bookstore/internal/http/handlers"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Make sure Gin does not spam the console during the test
func init() {
	gin.SetMode(gin.TestMode)
}

// Fake implementations of the handler store interfaces

type fakeReviews struct {
	listFn   func(ctx context.Context, bookID int64) ([]review.Review, error)
	getFn    func(ctx context.Context, id int64) (review.Review, error)
	createFn func(ctx context.Context, in review.NewReview) (review.Review, error)
	updateFn func(ctx context.Context, id int64, rating *int, comment *string) (review.Review, error)
	deleteFn func(ctx context.Context, id int64) error
}

func (f *fakeReviews) ListByBook(ctx context.Context, bookID int64) ([]review.Review, error) {
	if f.listFn != nil {
		return f.listFn(ctx, bookID)
	}
	return nil, nil
}

func (f *fakeReviews) GetByID(ctx context.Context, id int64) (review.Review, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return review.Review{}, review.ErrNotFound
}

func (f *fakeReviews) Create(ctx context.Context, in review.NewReview) (review.Review, error) {
	if f.createFn != nil {
		return f.createFn(ctx, in)
	}
	return review.Review{ID: 1, UserID: in.UserID, BookID: in.BookID, Rating: in.Rating}, nil
}

func (f *fakeReviews) Update(ctx context.Context, id int64, rating *int, comment *string) (review.Review, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, rating, comment)
	}
	return review.Review{ID: id}, nil
}

func (f *fakeReviews) Delete(ctx context.Context, id int64) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

type fakeBooks struct {
	summariesFn  func(ctx context.Context) ([]book.Summary, error)
	getFn        func(ctx context.Context, id int64) (book.Book, error)
	createFn     func(ctx context.Context, in book.Input) (book.Book, error)
	categoriesFn func(ctx context.Context) ([]book.Category, error)
}

func (f *fakeBooks) ListSummaries(ctx context.Context) ([]book.Summary, error) {
	if f.summariesFn != nil {
		return f.summariesFn(ctx)
	}
	return nil, nil
}

func (f *fakeBooks) GetByID(ctx context.Context, id int64) (book.Book, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return book.Book{}, book.ErrNotFound
}

func (f *fakeBooks) Create(ctx context.Context, in book.Input) (book.Book, error) {
	if f.createFn != nil {
		return f.createFn(ctx, in)
	}
	return book.Book{}, errors.New("not used")
}

func (f *fakeBooks) Update(context.Context, int64, book.Input) (book.Book, error) {
	return book.Book{}, errors.New("not used")
}

func (f *fakeBooks) Delete(context.Context, int64) error { return nil }

func (f *fakeBooks) ListCategories(ctx context.Context) ([]book.Category, error) {
	if f.categoriesFn != nil {
		return f.categoriesFn(ctx)
	}
	return nil, nil
}

type fakeImages struct {
	saved   []string
	deleted []string
}

func (f *fakeImages) Save(_ context.Context, name string, _ []byte) (string, error) {
	loc := "/uploads/" + name
	f.saved = append(f.saved, loc)
	return loc, nil
}

func (f *fakeImages) Delete(_ context.Context, location string) error {
	f.deleted = append(f.deleted, location)
	return nil
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}
func (brokenCache) Set(context.Context, string, []byte) error { return errors.New("connection refused") }
func (brokenCache) Delete(context.Context, ...string) error { return errors.New("connection refused") }

type countingRecorder struct {
	counts map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{counts: map[string]int{}}
}

func (c *countingRecorder) RecordAuthDecision(gate, result string) { c.counts[gate+"/"+result]++ }
func (c *countingRecorder) RecordCacheLookup(key, result string) { c.counts[key+"/"+result]++ }

// withClaims stands in for the token verifier.
func withClaims(claims *auth.Claims) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(actorctx.WithClaims(c.Request.Context(), claims))
		c.Next()
	}
}

func setupRouter(method, path string, hs ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Handle(method, path, hs...)
	return r
}

func serveJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestReviewsUpdate_OwnershipGate(t *testing.T) {
	const ownerID = 5

	tests := []struct {
		name       string
		claims     *auth.Claims
		getErr     error
		wantStatus int
		wantResult string
	}{
		{name: "owner", claims: &auth.Claims{ID: ownerID, Role: role.User}, wantStatus: http.StatusOK, wantResult: "allow"},
		{name: "admin is not owner", claims: &auth.Claims{ID: 9, Role: role.Admin}, wantStatus: http.StatusForbidden, wantResult: "deny"},
		{name: "other user", claims: &auth.Claims{ID: 9, Role: role.User}, wantStatus: http.StatusForbidden, wantResult: "deny"},
		{name: "missing review", claims: &auth.Claims{ID: ownerID, Role: role.User}, getErr: review.ErrNotFound, wantStatus: http.StatusForbidden, wantResult: "deny"},
		{name: "store failure", claims: &auth.Claims{ID: ownerID, Role: role.User}, getErr: errors.New("db down"), wantStatus: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			updated := false
			repo := &fakeReviews{
				getFn: func(_ context.Context, id int64) (review.Review, error) {
					if tc.getErr != nil {
						return review.Review{}, tc.getErr
					}
					return review.Review{ID: id, UserID: ownerID, Rating: 3}, nil
				},
				updateFn: func(_ context.Context, id int64, rating *int, _ *string) (review.Review, error) {
					updated = true
					return review.Review{ID: id, UserID: ownerID, Rating: *rating}, nil
				},
			}
			rec := newCountingRecorder()
			h := handlers.NewReviewsHandler(repo, nil, rec)

			r := setupRouter(http.MethodPut, "/reviews/:id", withClaims(tc.claims), h.Update)
			w := serveJSON(r, http.MethodPut, "/reviews/11", `{"rating":4}`)

			assert.Equal(t, tc.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tc.wantStatus == http.StatusOK, updated)
			if tc.wantResult != "" {
				assert.Equal(t, 1, rec.counts["review_edit/"+tc.wantResult])
			}
			if tc.wantStatus == http.StatusInternalServerError {
				assert.NotContains(t, w.Body.String(), "db down")
			}
		})
	}
}

func TestReviewsDelete_OwnershipGate(t *testing.T) {
	const ownerID = 5

	tests := []struct {
		name       string
		claims     *auth.Claims
		wantStatus int
	}{
		{name: "owner", claims: &auth.Claims{ID: ownerID, Role: role.User}, wantStatus: http.StatusOK},
		{name: "other user", claims: &auth.Claims{ID: 9, Role: role.User}, wantStatus: http.StatusForbidden},
		{name: "admin", claims: &auth.Claims{ID: 9, Role: role.Admin}, wantStatus: http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			deleted := false
			repo := &fakeReviews{
				getFn: func(_ context.Context, id int64) (review.Review, error) {
					return review.Review{ID: id, UserID: ownerID}, nil
				},
				deleteFn: func(context.Context, int64) error {
					deleted = true
					return nil
				},
			}
			h := handlers.NewReviewsHandler(repo, nil, nil)

			r := setupRouter(http.MethodDelete, "/reviews/:id", withClaims(tc.claims), h.Delete)
			w := serveJSON(r, http.MethodDelete, "/reviews/3", "")

			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Equal(t, tc.wantStatus == http.StatusOK, deleted)
		})
	}
}

func TestReviewsCreate_RequiresClaims(t *testing.T) {
	h := handlers.NewReviewsHandler(&fakeReviews{}, nil, nil)

	r := setupRouter(http.MethodPost, "/books/:id/reviews", h.Create)
	w := serveJSON(r, http.MethodPost, "/books/1/reviews", `{"rating":3}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReviewsCreate_UsesCallerIdentity(t *testing.T) {
	var got review.NewReview
	repo := &fakeReviews{createFn: func(_ context.Context, in review.NewReview) (review.Review, error) {
		got = in
		return review.Review{ID: 1, UserID: in.UserID, BookID: in.BookID, Rating: in.Rating}, nil
	}}
	h := handlers.NewReviewsHandler(repo, nil, nil)

	r := setupRouter(http.MethodPost, "/books/:id/reviews", withClaims(&auth.Claims{ID: 42, Role: role.User}), h.Create)
	// a userId in the body is ignored
	w := serveJSON(r, http.MethodPost, "/books/8/reviews", `{"rating":3,"userId":1}`)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, int64(42), got.UserID)
	assert.Equal(t, int64(8), got.BookID)
}

func TestBooksHome_CacheFailureFallsBackToStore(t *testing.T) {
	calls := 0
	books := &fakeBooks{summariesFn: func(context.Context) ([]book.Summary, error) {
		calls++
		return []book.Summary{book.NewSummary(book.Book{ID: 1, Title: "Dune"}, 9, 2)}, nil
	}}
	rec := newCountingRecorder()
	h := handlers.NewBooksHandler(books, nil, handlers.NewCatalogCache(brokenCache{}, rec), 0)

	r := setupRouter(http.MethodGet, "/home", h.Home)
	w := serveJSON(r, http.MethodGet, "/home", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, calls)
	assert.Contains(t, w.Body.String(), `"averageRating":4.5`)
	assert.Contains(t, w.Body.String(), `"categoryName":"No category"`)
	assert.Equal(t, 1, rec.counts[cache.KeyHome+"/error"])
}

func TestBooksHome_ServedFromCache(t *testing.T) {
	store := cache.NewMemory(0)
	require.NoError(t, store.Set(context.Background(), cache.KeyHome, []byte(`[{"id":99}]`)))

	books := &fakeBooks{summariesFn: func(context.Context) ([]book.Summary, error) {
		t.Fatal("store should not be read on a cache hit")
		return nil, nil
	}}
	rec := newCountingRecorder()
	h := handlers.NewBooksHandler(books, nil, handlers.NewCatalogCache(store, rec), 0)

	r := setupRouter(http.MethodGet, "/home", h.Home)
	w := serveJSON(r, http.MethodGet, "/home", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id":99}]`, w.Body.String())
	assert.Equal(t, 1, rec.counts[cache.KeyHome+"/hit"])
}

func TestBooksHome_EmptyIsArray(t *testing.T) {
	h := handlers.NewBooksHandler(&fakeBooks{}, nil, nil, 0)

	r := setupRouter(http.MethodGet, "/home", h.Home)
	w := serveJSON(r, http.MethodGet, "/home", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestBooksGet(t *testing.T) {
	books := &fakeBooks{getFn: func(_ context.Context, id int64) (book.Book, error) {
		if id == 1 {
			return book.Book{ID: 1, Title: "Dune"}, nil
		}
		return book.Book{}, book.ErrNotFound
	}}
	h := handlers.NewBooksHandler(books, nil, nil, 0)
	r := setupRouter(http.MethodGet, "/books/:id", h.Get)

	w := serveJSON(r, http.MethodGet, "/books/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("ETag"))

	w = serveJSON(r, http.MethodGet, "/books/2", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"message":"Book not found"`)

	w = serveJSON(r, http.MethodGet, "/books/-3", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func serveCoverForm(r *gin.Engine, path string, fields map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	fw, _ := mw.CreateFormFile("image", "cover.png")
	_, _ = fw.Write([]byte("\x89PNG\r\n\x1a\n"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBooksCreate_DiscardsCoverWhenStoreRejects(t *testing.T) {
	fields := map[string]string{"title": "Dune", "author": "Herbert", "price": "10", "categoryId": "42"}

	tests := []struct {
		name        string
		createErr   error
		wantStatus  int
		wantDeleted int
	}{
		{name: "unknown category", createErr: book.ErrUnknownCategory, wantStatus: http.StatusBadRequest, wantDeleted: 1},
		{name: "store failure", createErr: errors.New("conn reset"), wantStatus: http.StatusInternalServerError, wantDeleted: 1},
		{name: "created", wantStatus: http.StatusCreated},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			images := &fakeImages{}
			books := &fakeBooks{createFn: func(_ context.Context, in book.Input) (book.Book, error) {
				if tc.createErr != nil {
					return book.Book{}, tc.createErr
				}
				return book.Book{ID: 1, Title: in.Title, Image: in.Image}, nil
			}}

			h := handlers.NewBooksHandler(books, images, nil, 0)
			r := setupRouter(http.MethodPost, "/books", h.Create)

			w := serveCoverForm(r, "/books", fields)

			require.Equal(t, tc.wantStatus, w.Code, w.Body.String())
			require.Len(t, images.saved, 1)
			assert.Len(t, images.deleted, tc.wantDeleted)
			if tc.wantDeleted > 0 {
				assert.Equal(t, images.saved, images.deleted)
			}
		})
	}
}

type fakeAccounts struct {
	getByEmailFn func(ctx context.Context, email string) (account.Account, error)
	createFn     func(ctx context.Context, in account.NewAccount) (account.Account, error)
}

func (f *fakeAccounts) GetByEmail(ctx context.Context, email string) (account.Account, error) {
	if f.getByEmailFn != nil {
		return f.getByEmailFn(ctx, email)
	}
	return account.Account{}, account.ErrNotFound
}

func (f *fakeAccounts) Create(ctx context.Context, in account.NewAccount) (account.Account, error) {
	if f.createFn != nil {
		return f.createFn(ctx, in)
	}
	return account.Account{ID: 1, Name: in.Name, Email: in.Email, Role: in.Role}, nil
}

type fakeIssuer struct{}

func (fakeIssuer) Issue(id int64, email string, r role.Role) (string, error) {
	return "token-for-" + email, nil
}

func TestRegister(t *testing.T) {
	body := `{"name":"Ada","email":"ada@example.com","password":"password123"}`

	tests := []struct {
		name        string
		accounts    *fakeAccounts
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "created as user",
			accounts:    &fakeAccounts{},
			wantStatus:  http.StatusCreated,
			wantMessage: "User registered successfully",
		},
		{
			name: "email already registered",
			accounts: &fakeAccounts{getByEmailFn: func(context.Context, string) (account.Account, error) {
				return account.Account{ID: 3}, nil
			}},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "User already exists",
		},
		{
			name: "lost insert race",
			accounts: &fakeAccounts{createFn: func(context.Context, account.NewAccount) (account.Account, error) {
				return account.Account{}, account.ErrEmailTaken
			}},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "User already exists",
		},
		{
			name: "store failure",
			accounts: &fakeAccounts{getByEmailFn: func(context.Context, string) (account.Account, error) {
				return account.Account{}, errors.New("pq: connection reset")
			}},
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Server error",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := handlers.NewAuthHandler(tc.accounts, fakeIssuer{})
			r := setupRouter(http.MethodPost, "/register", h.Register)

			w := serveJSON(r, http.MethodPost, "/register", body)

			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), `"message":"`+tc.wantMessage+`"`)
			assert.False(t, strings.Contains(w.Body.String(), "connection reset"))
		})
	}
}

func TestRegister_AssignsUserRole(t *testing.T) {
	var got account.NewAccount
	accounts := &fakeAccounts{createFn: func(_ context.Context, in account.NewAccount) (account.Account, error) {
		got = in
		return account.Account{ID: 1, Email: in.Email, Role: in.Role}, nil
	}}

	h := handlers.NewAuthHandler(accounts, fakeIssuer{})
	r := setupRouter(http.MethodPost, "/register", h.Register)

	w := serveJSON(r, http.MethodPost, "/register", `{"name":"Ada","email":"ada@example.com","password":"password123","roleId":1}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, role.User, got.Role)
	assert.NotEqual(t, "password123", got.PasswordHash)
	assert.Contains(t, w.Body.String(), `"token":"token-for-ada@example.com"`)
}

func TestReadyz(t *testing.T) {
	h := handlers.NewHealthHandler(
		handlers.Pinger{Name: "postgres", Ping: func(context.Context) error { return nil }},
		handlers.Pinger{Name: "redis", Ping: func(context.Context) error { return errors.New("down") }},
	)

	r := setupRouter(http.MethodGet, "/readyz", h.Readyz)
	w := serveJSON(r, http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"not_ready","checks":{"postgres":"up","redis":"down"}}`, w.Body.String())
}

func TestRegister_PasswordOverBcryptByteLimit(t *testing.T) {
	created := false
	accounts := &fakeAccounts{createFn: func(context.Context, account.NewAccount) (account.Account, error) {
		created = true
		return account.Account{}, nil
	}}

	h := handlers.NewAuthHandler(accounts, fakeIssuer{})
	r := setupRouter(http.MethodPost, "/register", h.Register)

	body := `{"name":"Ada","email":"ada@example.com","password":"` + strings.Repeat("é", 40) + `"}`
	w := serveJSON(r, http.MethodPost, "/register", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"message":"Password must be at most 72 bytes"`)
	assert.False(t, created)
}
