package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/geocoder89/bookstore/internal/cache"
	"github.com/geocoder89/bookstore/internal/domain/book"
	"github.com/geocoder89/bookstore/internal/storage"
	"github.com/gin-gonic/gin"
)

type BookStore interface {
	ListSummaries(ctx context.Context) ([]book.Summary, error)
	GetByID(ctx context.Context, id int64) (book.Book, error)
	Create(ctx context.Context, in book.Input) (book.Book, error)
	Update(ctx context.Context, id int64, in book.Input) (book.Book, error)
	Delete(ctx context.Context, id int64) error
	ListCategories(ctx context.Context) ([]book.Category, error)
}

type BooksHandler struct {
	books     BookStore
	images    storage.ImageStore
	cache     *CatalogCache
	maxUpload int64
}

func NewBooksHandler(books BookStore, images storage.ImageStore, catalog *CatalogCache, maxUpload int64) *BooksHandler {
	if maxUpload <= 0 {
		maxUpload = 5 << 20
	}
	return &BooksHandler{books: books, images: images, cache: catalog, maxUpload: maxUpload}
}

const missingBookFields = "Title, author, and price are required"

// Home lists every book with its rating aggregate.
func (h *BooksHandler) Home(ctx *gin.Context) {
	cctx, cancel := withTimeout(ctx, shortTimeout)
	defer cancel()

	if body, ok := h.cache.load(cctx, cache.KeyHome); ok {
		RespondRawJSONWithETag(ctx, http.StatusOK, body)
		return
	}

	summaries, err := h.books.ListSummaries(cctx)
	if err != nil {
		slog.Default().ErrorContext(cctx, "books.home_failed", "err", err)
		RespondInternal(ctx, "Internal server error")
		return
	}

	if summaries == nil {
		summaries = []book.Summary{}
	}

	body, err := json.Marshal(summaries)
	if err != nil {
		RespondInternal(ctx, "Internal server error")
		return
	}

	h.cache.save(cctx, cache.KeyHome, body)
	RespondRawJSONWithETag(ctx, http.StatusOK, body)
}

func (h *BooksHandler) Categories(ctx *gin.Context) {
	cctx, cancel := withTimeout(ctx, shortTimeout)
	defer cancel()

	if body, ok := h.cache.load(cctx, cache.KeyCategories); ok {
		RespondRawJSONWithETag(ctx, http.StatusOK, body)
		return
	}

	categories, err := h.books.ListCategories(cctx)
	if err != nil {
		slog.Default().ErrorContext(cctx, "books.categories_failed", "err", err)
		RespondInternal(ctx, "Server error")
		return
	}

	if categories == nil {
		categories = []book.Category{}
	}

	body, err := json.Marshal(categories)
	if err != nil {
		RespondInternal(ctx, "Server error")
		return
	}

	h.cache.save(cctx, cache.KeyCategories, body)
	RespondRawJSONWithETag(ctx, http.StatusOK, body)
}

func (h *BooksHandler) Get(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	cctx, cancel := withTimeout(ctx, shortTimeout)
	defer cancel()

	b, err := h.books.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, book.ErrNotFound) {
			RespondNotFound(ctx, "Book not found")
			return
		}
		slog.Default().ErrorContext(cctx, "books.get_failed", "book_id", id, "err", err)
		RespondInternal(ctx, "Server error")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, b)
}

func (h *BooksHandler) Create(ctx *gin.Context) {
	var in book.Input

	if !BindForm(ctx, &in, missingBookFields) {
		return
	}
	in.Normalize()

	cctx, cancel := withTimeout(ctx, uploadTimeout)
	defer cancel()

	image, ok := h.saveImage(cctx, ctx)
	if !ok {
		return
	}
	in.Image = image

	created, err := h.books.Create(cctx, in)
	if err != nil {
		h.discardImage(cctx, image)
		h.respondWriteErr(cctx, ctx, "books.create_failed", err)
		return
	}

	h.cache.invalidateHome(cctx)

	slog.Default().InfoContext(cctx, "books.created", "book_id", created.ID)
	ctx.JSON(http.StatusCreated, created)
}

// Update replaces every field; the cover changes only when a new file is sent.
func (h *BooksHandler) Update(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var in book.Input

	if !BindForm(ctx, &in, missingBookFields) {
		return
	}
	in.Normalize()

	cctx, cancel := withTimeout(ctx, uploadTimeout)
	defer cancel()

	// fail before writing a file for a book that does not exist
	if _, err := h.books.GetByID(cctx, id); err != nil {
		h.respondWriteErr(cctx, ctx, "books.update_failed", err)
		return
	}

	image, ok := h.saveImage(cctx, ctx)
	if !ok {
		return
	}
	in.Image = image

	updated, err := h.books.Update(cctx, id, in)
	if err != nil {
		h.discardImage(cctx, image)
		h.respondWriteErr(cctx, ctx, "books.update_failed", err)
		return
	}

	h.cache.invalidateHome(cctx)

	ctx.JSON(http.StatusOK, updated)
}

func (h *BooksHandler) Delete(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	cctx, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	if err := h.books.Delete(cctx, id); err != nil {
		h.respondWriteErr(cctx, ctx, "books.delete_failed", err)
		return
	}

	h.cache.invalidateHome(cctx)

	slog.Default().InfoContext(cctx, "books.deleted", "book_id", id)
	RespondMessage(ctx, http.StatusOK, "Book deleted successfully")
}

func (h *BooksHandler) respondWriteErr(cctx context.Context, ctx *gin.Context, event string, err error) {
	switch {
	case errors.Is(err, book.ErrNotFound):
		RespondNotFound(ctx, "Book not found")
	case errors.Is(err, book.ErrUnknownCategory):
		RespondBadRequest(ctx, "Unknown category", nil)
	default:
		slog.Default().ErrorContext(cctx, event, "err", err)
		RespondInternal(ctx, "Server error")
	}
}

// discardImage removes a cover saved for a write that did not go through.
func (h *BooksHandler) discardImage(cctx context.Context, location string) {
	if location == "" || h.images == nil {
		return
	}

	// the request context may already be done
	dctx, cancel := context.WithTimeout(context.WithoutCancel(cctx), writeTimeout)
	defer cancel()

	if err := h.images.Delete(dctx, location); err != nil {
		slog.Default().WarnContext(cctx, "books.image_cleanup_failed", "image", location, "err", err)
	}
}

// saveImage stores the optional "image" form file. An empty path with ok=true
// means no file was sent.
func (h *BooksHandler) saveImage(cctx context.Context, ctx *gin.Context) (string, bool) {
	fh, err := ctx.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return "", true
	}
	if err != nil {
		RespondBadRequest(ctx, "Invalid image upload", nil)
		return "", false
	}

	if h.images == nil {
		RespondBadRequest(ctx, "Image uploads are disabled", nil)
		return "", false
	}

	if fh.Size > h.maxUpload {
		RespondBadRequest(ctx, "File too large", gin.H{"maxBytes": h.maxUpload})
		return "", false
	}

	f, err := fh.Open()
	if err != nil {
		RespondBadRequest(ctx, "Invalid image upload", nil)
		return "", false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUpload+1))
	if err != nil {
		RespondBadRequest(ctx, "Invalid image upload", nil)
		return "", false
	}
	if int64(len(data)) > h.maxUpload {
		RespondBadRequest(ctx, "File too large", gin.H{"maxBytes": h.maxUpload})
		return "", false
	}

	path, err := h.images.Save(cctx, fh.Filename, data)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedImage) || errors.Is(err, storage.ErrEmptyImage) {
			RespondBadRequest(ctx, "Unsupported file format", nil)
			return "", false
		}
		slog.Default().ErrorContext(cctx, "books.image_save_failed", "err", err)
		RespondInternal(ctx, "Server error")
		return "", false
	}

	return path, true
}
