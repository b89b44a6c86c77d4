// Package static serves the journal front end from a public root directory.
package static

import (
	"errors"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var contentTypes = map[string]string{
	".html": "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".jsx":  "application/javascript",
	".json": "application/json",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
}

// ContentType returns the Content-Type header for a file name, adding a UTF-8 charset to
// text, JavaScript and JSON types.
func ContentType(name string) string {
	typ, ok := contentTypes[strings.ToLower(filepath.Ext(name))]
	if !ok {
		typ = "text/plain"
	}
	if strings.HasPrefix(typ, "text/") || typ == "application/javascript" || typ == "application/json" {
		return typ + "; charset=utf-8"
	}
	return typ
}

// Handler resolves request paths against root. Paths escaping the root, dot-files, directories
// and hidden files are reported as missing.
type Handler struct {
	root   string
	hidden map[string]struct{}
}

// NewHandler builds a Handler for root. hidden lists files or directories under root that must
// never be served, such as the document owned by the record store and its snapshots.
func NewHandler(root string, hidden ...string) (*Handler, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	h := &Handler{root: abs, hidden: make(map[string]struct{}, len(hidden))}
	for _, p := range hidden {
		if p == "" {
			continue
		}
		if resolved, err := resolvePath(p); err == nil {
			h.hidden[resolved] = struct{}{}
		}
	}
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	file, err := h.resolve(r.URL.Path)
	if err != nil {
		notFound(w)
		return
	}

	f, err := os.Open(file)
	if err != nil {
		notFound(w)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		notFound(w)
		return
	}

	w.Header().Set("Content-Type", ContentType(file))
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

var errOutsideRoot = errors.New("path outside public root")

// resolve maps a URL path to a servable file under root.
func (h *Handler) resolve(urlPath string) (string, error) {
	if urlPath == "" || urlPath == "/" {
		urlPath = "/index.html"
	}
	cleaned := path.Clean("/" + urlPath)

	for _, segment := range strings.Split(cleaned, "/") {
		if strings.HasPrefix(segment, ".") {
			return "", errOutsideRoot
		}
	}

	candidate := filepath.Join(h.root, filepath.FromSlash(cleaned))
	resolved, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		return "", err
	}
	if !within(h.root, resolved) {
		return "", errOutsideRoot
	}
	if h.isHidden(resolved) {
		return "", errOutsideRoot
	}
	return resolved, nil
}

// isHidden reports whether p is a hidden file or lies under a hidden directory.
func (h *Handler) isHidden(p string) bool {
	for hidden := range h.hidden {
		if within(hidden, p) {
			return true
		}
	}
	return false
}

func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

func resolvePath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	dir, err := filepath.EvalSymlinks(filepath.Dir(abs))
	if err != nil {
		return abs, nil
	}
	return filepath.Join(dir, filepath.Base(abs)), nil
}

func notFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("Not found"))
}
