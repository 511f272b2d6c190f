package api

import (
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// isoMillis matches JavaScript's Date.prototype.toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// HealthResponse is the JSON structure for /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
}

// FileEntry is one script listed by /files.
type FileEntry struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// FilesResponse is the JSON structure for /files.
type FilesResponse struct {
	Files []FileEntry `json:"files"`
}

// Health reports the service as up.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{
		Status:    "ok",
		Service:   h.Config.ServiceName,
		Timestamp: h.now().UTC().Format(isoMillis),
	})
}

// Files lists the script files directly under the static root.
func (h *Handler) Files(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(h.Config.StaticRoot)
	if err != nil {
		slog.Error("reading static root", "tag", "api", "root", h.Config.StaticRoot, "err", err)
		http.Error(w, "failed to list files", http.StatusInternalServerError)
		return
	}

	base := requestScheme(r) + "://" + r.Host + "/"
	files := []FileEntry{}
	for _, e := range entries {
		name := e.Name()
		if hidden(name) || !strings.HasSuffix(name, ".js") || !isFile(h.Config.StaticRoot, e) {
			continue
		}
		files = append(files, FileEntry{Name: name, URL: base + url.PathEscape(name)})
	}
	writeJSON(w, FilesResponse{Files: files})
}

// isFile reports whether e is a regular file, following symlinks.
func isFile(root string, e fs.DirEntry) bool {
	if e.Type()&fs.ModeSymlink == 0 {
		return e.Type().IsRegular()
	}
	info, err := os.Stat(filepath.Join(root, e.Name()))
	return err == nil && info.Mode().IsRegular()
}

// requestScheme is https for TLS requests or when a proxy says so.
func requestScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")), "https") {
		return "https"
	}
	return "http"
}

// Static serves regular files under root. Directories and dot-files are reported as missing.
func Static(root string) http.Handler {
	return http.FileServer(filesOnly{http.Dir(root)})
}

type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	for _, part := range strings.Split(name, "/") {
		if hidden(part) {
			return nil, fs.ErrNotExist
		}
	}
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, fs.ErrNotExist
	}
	return file, nil
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
