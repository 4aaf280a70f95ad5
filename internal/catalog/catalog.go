// Package catalog は書籍カタログ（ISBNをキーとした静的な書籍一覧）を提供します。
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed books.yaml
var defaultBooks []byte

// Book はカタログ上の書籍です。
type Book struct {
	ISBN   string `yaml:"isbn" json:"-"`
	Author string `yaml:"author" json:"author"`
	Title  string `yaml:"title" json:"title"`
}

type catalogFile struct {
	Books []Book `yaml:"books"`
}

// Catalog は読み取り専用の書籍カタログです。生成後は変更されないため並行アクセスに安全です。
type Catalog struct {
	books map[string]Book
	order []string
}

// New は書籍一覧からカタログを作成します。ISBNの空・重複はエラーです。
func New(books []Book) (*Catalog, error) {
	c := &Catalog{
		books: make(map[string]Book, len(books)),
		order: make([]string, 0, len(books)),
	}
	for _, b := range books {
		if strings.TrimSpace(b.ISBN) == "" {
			return nil, fmt.Errorf("book %q has empty isbn", b.Title)
		}
		if _, dup := c.books[b.ISBN]; dup {
			return nil, fmt.Errorf("duplicate isbn: %s", b.ISBN)
		}
		c.books[b.ISBN] = b
		c.order = append(c.order, b.ISBN)
	}
	sort.SliceStable(c.order, func(i, j int) bool {
		return lessISBN(c.order[i], c.order[j])
	})
	return c, nil
}

// Parse は YAML 形式のカタログを読み込みます。
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return New(file.Books)
}

// Load は path のカタログを読み込みます。path が空なら埋め込みのカタログを使用します。
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Parse(defaultBooks)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Get は ISBN で書籍を取得します。
func (c *Catalog) Get(isbn string) (Book, bool) {
	b, ok := c.books[isbn]
	return b, ok
}

// Exists は ISBN の書籍が存在するかを返します。
func (c *Catalog) Exists(isbn string) bool {
	_, ok := c.books[isbn]
	return ok
}

// All は全書籍を ISBN 順で返します。
func (c *Catalog) All() []Book {
	return c.filter(func(Book) bool { return true })
}

// ByAuthor は著者名が完全一致する書籍を返します。
func (c *Catalog) ByAuthor(author string) []Book {
	return c.filter(func(b Book) bool { return b.Author == author })
}

// ByTitle はタイトルが完全一致する書籍を返します。
func (c *Catalog) ByTitle(title string) []Book {
	return c.filter(func(b Book) bool { return b.Title == title })
}

func (c *Catalog) filter(match func(Book) bool) []Book {
	var out []Book
	for _, isbn := range c.order {
		if b := c.books[isbn]; match(b) {
			out = append(out, b)
		}
	}
	return out
}

// 数値のISBNは数値順、それ以外は文字列順。
func lessISBN(a, b string) bool {
	ai, aErr := strconv.Atoi(a)
	bi, bErr := strconv.Atoi(b)
	if aErr == nil && bErr == nil {
		return ai < bi
	}
	return a < b
}
