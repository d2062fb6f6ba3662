package render

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	layoutsDir  = "layouts"
	partialsDir = "partials"
	pagesDir    = "pages"

	// BaseTemplate is the layout entry point every page executes.
	BaseTemplate = "base"
)

// ErrUnknownTemplate is returned when a page or fragment name is not loaded.
var ErrUnknownTemplate = errors.New("render: unknown template")

// Options configures a Renderer.
type Options struct {
	// FS holds layouts/, partials/ and pages/ with .tmpl files.
	FS fs.FS
	// Dir, when set, loads templates from disk instead of FS.
	Dir string
	// Watch reparses templates when files under Dir change.
	Watch  bool
	Funcs  template.FuncMap
	Logger *zap.Logger
}

// Renderer owns the parsed template set. Layouts and partials are shared;
// each page is parsed into its own clone so pages can all define "content".
type Renderer struct {
	fsys   fs.FS
	dir    string
	funcs  template.FuncMap
	logger *zap.Logger

	mu    sync.RWMutex
	root  *template.Template
	pages map[string]*template.Template

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// New parses the template set and, when requested, starts watching Dir.
func New(opts Options) (*Renderer, error) {
	r := &Renderer{
		fsys:   opts.FS,
		dir:    strings.TrimSpace(opts.Dir),
		funcs:  baseFuncs(),
		logger: opts.Logger,
		done:   make(chan struct{}),
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	for name, fn := range opts.Funcs {
		r.funcs[name] = fn
	}
	if r.dir != "" {
		r.fsys = os.DirFS(r.dir)
	}
	if r.fsys == nil {
		return nil, errors.New("render: no template source configured")
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	if opts.Watch {
		if r.dir == "" {
			return nil, errors.New("render: watching requires a templates directory")
		}
		if err := r.watch(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Reload reparses every template. On failure the previous set stays active.
func (r *Renderer) Reload() error {
	root, pages, err := parse(r.fsys, r.funcs)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.root = root
	r.pages = pages
	r.mu.Unlock()
	return nil
}

// Pages lists the loaded page names.
func (r *Renderer) Pages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.pages))
	for name := range r.pages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Page renders the base layout for page and writes it with status.
func (r *Renderer) Page(w http.ResponseWriter, status int, page string, data any) error {
	r.mu.RLock()
	tmpl, ok := r.pages[page]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: page %q", ErrUnknownTemplate, page)
	}
	return write(w, status, tmpl, BaseTemplate, data)
}

// Fragment renders a single named partial, as used for htmx swaps.
func (r *Renderer) Fragment(w http.ResponseWriter, status int, name string, data any) error {
	r.mu.RLock()
	root := r.root
	r.mu.RUnlock()
	if root == nil || root.Lookup(name) == nil {
		return fmt.Errorf("%w: fragment %q", ErrUnknownTemplate, name)
	}
	return write(w, status, root, name, data)
}

// Close stops the watcher, if any.
func (r *Renderer) Close() error {
	if r.watcher == nil {
		return nil
	}
	select {
	case <-r.done:
		return nil
	default:
	}
	close(r.done)
	err := r.watcher.Close()
	r.wg.Wait()
	return err
}

func write(w http.ResponseWriter, status int, tmpl *template.Template, name string, data any) error {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render: execute %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func parse(fsys fs.FS, funcs template.FuncMap) (*template.Template, map[string]*template.Template, error) {
	shared, err := collect(fsys, layoutsDir, partialsDir)
	if err != nil {
		return nil, nil, err
	}
	if len(shared) == 0 {
		return nil, nil, fmt.Errorf("render: no layouts or partials found")
	}
	root, err := parseFiles(template.New("_root").Funcs(funcs), fsys, shared)
	if err != nil {
		return nil, nil, err
	}
	if root.Lookup(BaseTemplate) == nil {
		return nil, nil, fmt.Errorf("render: layout %q not defined", BaseTemplate)
	}

	pageFiles, err := collect(fsys, pagesDir)
	if err != nil {
		return nil, nil, err
	}
	pages := make(map[string]*template.Template, len(pageFiles))
	for _, file := range pageFiles {
		clone, err := root.Clone()
		if err != nil {
			return nil, nil, fmt.Errorf("render: clone for %s: %w", file, err)
		}
		tmpl, err := parseFiles(clone, fsys, []string{file})
		if err != nil {
			return nil, nil, err
		}
		name := strings.TrimSuffix(strings.TrimPrefix(file, pagesDir+"/"), ".tmpl")
		pages[name] = tmpl
	}
	return root, pages, nil
}

// collect walks dirs and returns .tmpl paths in lexical order.
func collect(fsys fs.FS, dirs ...string) ([]string, error) {
	var files []string
	for _, dir := range dirs {
		err := fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) && p == dir {
					return fs.SkipDir
				}
				return err
			}
			if !d.IsDir() && strings.HasSuffix(d.Name(), ".tmpl") {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("render: walk %s: %w", dir, err)
		}
	}
	return files, nil
}

func parseFiles(t *template.Template, fsys fs.FS, files []string) (*template.Template, error) {
	for _, file := range files {
		raw, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("render: read %s: %w", file, err)
		}
		if _, err := t.New(path.Base(file)).Parse(string(raw)); err != nil {
			return nil, fmt.Errorf("render: parse %s: %w", file, err)
		}
	}
	return t, nil
}

func (r *Renderer) watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("render: watcher: %w", err)
	}
	for _, sub := range []string{layoutsDir, partialsDir, pagesDir} {
		dir := filepath.Join(r.dir, sub)
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("render: watch %s: %w", dir, err)
		}
	}
	r.watcher = watcher

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-r.done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(event.Name, ".tmpl") {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				if err := r.Reload(); err != nil {
					r.logger.Warn("template reload failed", zap.String("file", event.Name), zap.Error(err))
					continue
				}
				r.logger.Info("templates reloaded", zap.String("file", event.Name))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.logger.Warn("template watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
