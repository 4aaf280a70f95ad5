package catalog

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ReviewLister は書籍ごとのレビューを返します。
type ReviewLister interface {
	ListReviews(ctx context.Context, isbn string) (map[string]string, error)
}

// bookView はレスポンス用の書籍表現です。
type bookView struct {
	Author  string            `json:"author"`
	Title   string            `json:"title"`
	Reviews map[string]string `json:"reviews"`
}

// Handler はカタログ参照系エンドポイントのハンドラーをまとめます。
type Handler struct {
	catalog *Catalog
	reviews ReviewLister
	logger  *log.Logger
}

// NewHandler は Handler を作成します。reviews が nil の場合は常に空のレビューを返します。
func NewHandler(c *Catalog, reviews ReviewLister, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{catalog: c, reviews: reviews, logger: logger}
}

// Register は参照系ルートを登録します。
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/", h.ListAll)
	r.GET("/books", h.ListAll)
	r.GET("/isbn/:isbn", h.GetByISBN)
	r.GET("/author/:author", h.ListByAuthor)
	r.GET("/title/:title", h.ListByTitle)

	// 旧クライアント向けの別名（処理は同期）
	r.GET("/async/isbn/:isbn", h.GetByISBN)
	r.GET("/async/author/:author", h.ListByAuthor)
	r.GET("/async/title/:title", h.ListByTitle)
}

// ListAll は GET / のハンドラーです。
func (h *Handler) ListAll(c *gin.Context) {
	out, err := h.views(c.Request.Context(), h.catalog.All())
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// GetByISBN は GET /isbn/:isbn のハンドラーです。
func (h *Handler) GetByISBN(c *gin.Context) {
	book, ok := h.catalog.Get(c.Param("isbn"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "BOOK_NOT_FOUND",
			"message": "Book not found",
		})
		return
	}
	view, err := h.view(c.Request.Context(), book)
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ListByAuthor は GET /author/:author のハンドラーです。
func (h *Handler) ListByAuthor(c *gin.Context) {
	h.respondMatches(c, h.catalog.ByAuthor(c.Param("author")), "No books found by this author")
}

// ListByTitle は GET /title/:title のハンドラーです。
func (h *Handler) ListByTitle(c *gin.Context) {
	h.respondMatches(c, h.catalog.ByTitle(c.Param("title")), "No books found with this title")
}

func (h *Handler) respondMatches(c *gin.Context, books []Book, notFoundMsg string) {
	if len(books) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "BOOK_NOT_FOUND",
			"message": notFoundMsg,
		})
		return
	}
	out, err := h.views(c.Request.Context(), books)
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) views(ctx context.Context, books []Book) (map[string]bookView, error) {
	out := make(map[string]bookView, len(books))
	for _, b := range books {
		v, err := h.view(ctx, b)
		if err != nil {
			return nil, err
		}
		out[b.ISBN] = v
	}
	return out, nil
}

func (h *Handler) view(ctx context.Context, b Book) (bookView, error) {
	reviews := map[string]string{}
	if h.reviews != nil {
		got, err := h.reviews.ListReviews(ctx, b.ISBN)
		if err != nil {
			return bookView{}, err
		}
		if got != nil {
			reviews = got
		}
	}
	return bookView{Author: b.Author, Title: b.Title, Reviews: reviews}, nil
}

func (h *Handler) internalError(c *gin.Context, err error) {
	h.logger.Printf("catalog lookup failed path=%s: %v", c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "INTERNAL_ERROR",
		"message": "Internal server error.",
	})
}
