package content

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

//go:embed pages
var embedded embed.FS

// Embedded returns the markdown pages compiled into the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "pages")
	if err != nil {
		panic(err)
	}
	return sub
}

// ErrNotFound is returned when no page exists for a slug in any language.
var ErrNotFound = errors.New("content: page not found")

const defaultCacheTTL = 5 * time.Minute

// Page is a rendered markdown page.
type Page struct {
	Slug      string
	Lang      string
	Title     string
	Summary   string
	Body      template.HTML
	UpdatedAt time.Time
	SEO       SEO
}

// SEO carries head overrides from front matter.
type SEO struct {
	Title       string
	Description string
}

type frontMatter struct {
	Title     string         `yaml:"title"`
	Summary   string         `yaml:"summary"`
	Lang      string         `yaml:"lang"`
	UpdatedAt string         `yaml:"updated_at"`
	SEO       frontMatterSEO `yaml:"seo"`
}

type frontMatterSEO struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

type cacheEntry struct {
	page    Page
	expires time.Time
}

// Store renders pages laid out as <lang>/<slug>.md, falling back to the
// default language when a translation is missing.
type Store struct {
	fsys     fs.FS
	fallback string
	ttl      time.Duration
	md       goldmark.Markdown
	policy   *bluemonday.Policy

	mu    sync.RWMutex
	items map[string]cacheEntry
}

// NewStore constructs a Store. A ttl of zero uses the default; a negative ttl
// disables caching.
func NewStore(fsys fs.FS, fallback string, ttl time.Duration) *Store {
	if fallback == "" {
		fallback = "en"
	}
	if ttl == 0 {
		ttl = defaultCacheTTL
	}
	return &Store{
		fsys:     fsys,
		fallback: fallback,
		ttl:      ttl,
		md:       goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy:   newContentPolicy(),
		items:    map[string]cacheEntry{},
	}
}

func newContentPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(false)
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	return policy
}

// Get returns the page for slug in lang.
func (s *Store) Get(_ context.Context, slug, lang string) (Page, error) {
	slug = sanitizeSlug(slug)
	if slug == "" {
		return Page{}, ErrNotFound
	}
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		lang = s.fallback
	}

	key := lang + "|" + slug
	if page, ok := s.cached(key); ok {
		return page, nil
	}

	page, err := s.read(slug, lang)
	if errors.Is(err, fs.ErrNotExist) && lang != s.fallback {
		page, err = s.read(slug, s.fallback)
	}
	if errors.Is(err, fs.ErrNotExist) {
		return Page{}, ErrNotFound
	}
	if err != nil {
		return Page{}, err
	}
	s.store(key, page)
	return page, nil
}

func (s *Store) read(slug, lang string) (Page, error) {
	file := path.Join(lang, slug+".md")
	data, err := fs.ReadFile(s.fsys, file)
	if err != nil {
		return Page{}, err
	}

	fm, body := splitFrontMatter(string(data))
	front := frontMatter{}
	if strings.TrimSpace(fm) != "" {
		if err := yaml.Unmarshal([]byte(fm), &front); err != nil {
			return Page{}, fmt.Errorf("content: parse front matter %s: %w", file, err)
		}
	}

	var buf bytes.Buffer
	if err := s.md.Convert([]byte(body), &buf); err != nil {
		return Page{}, fmt.Errorf("content: render %s: %w", file, err)
	}

	page := Page{
		Slug:      slug,
		Lang:      firstNonEmpty(strings.TrimSpace(front.Lang), lang),
		Title:     strings.TrimSpace(front.Title),
		Summary:   strings.TrimSpace(front.Summary),
		Body:      template.HTML(s.policy.SanitizeBytes(buf.Bytes())),
		UpdatedAt: parseDate(front.UpdatedAt),
		SEO: SEO{
			Title:       strings.TrimSpace(front.SEO.Title),
			Description: strings.TrimSpace(front.SEO.Description),
		},
	}
	if page.Title == "" {
		page.Title = prettifySlug(slug)
	}
	return page, nil
}

func splitFrontMatter(input string) (string, string) {
	input = strings.TrimLeft(input, "\ufeff")
	lines := strings.Split(input, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return "", input
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			fm := strings.Join(lines[1:i], "\n")
			body := strings.Join(lines[i+1:], "\n")
			return fm, strings.TrimLeft(body, "\n\r")
		}
	}
	return "", input
}

func parseDate(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006/01/02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func prettifySlug(slug string) string {
	parts := strings.Split(slug, "-")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}

func sanitizeSlug(slug string) string {
	slug = strings.Trim(strings.TrimSpace(strings.ToLower(slug)), "/")
	if slug == "" || strings.Contains(slug, "..") || strings.ContainsAny(slug, `/\`) {
		return ""
	}
	return slug
}

func (s *Store) cached(key string) (Page, bool) {
	if s.ttl < 0 {
		return Page{}, false
	}
	s.mu.RLock()
	entry, ok := s.items[key]
	s.mu.RUnlock()
	if !ok || time.Now().After(entry.expires) {
		return Page{}, false
	}
	return entry.page, true
}

func (s *Store) store(key string, page Page) {
	if s.ttl < 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = cacheEntry{page: page, expires: time.Now().Add(s.ttl)}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
