package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
)

// NotFoundBody is answered for every path except the download route.
const NotFoundBody = "File not found."

// File is the single file being shared.
type File interface {
	// Name is the filename suggested to the client.
	Name() string
	ReadAll() ([]byte, error)
}

// DiskFile reads Path from disk on every call. Nothing is cached, so a file
// that changes or disappears after startup is seen by the next request.
type DiskFile struct {
	Path string
}

func (f DiskFile) Name() string { return filepath.Base(f.Path) }

func (f DiskFile) ReadAll() ([]byte, error) { return os.ReadFile(f.Path) }

// Download answers with the whole file as an attachment.
type Download struct {
	File   File
	Logger *slog.Logger
	// OnServed runs after a GET response carrying the full file was written.
	OnServed func()
}

func (d *Download) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := orDefault(d.Logger)

	data, err := d.File.ReadAll()
	if err != nil {
		logger.Error("read shared file failed", "file", d.File.Name(), "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// The name comes from a local path chosen by the operator, not the client.
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", d.File.Name()))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(data); err != nil {
		logger.Warn("download interrupted", "file", d.File.Name(), "remote", r.RemoteAddr, "error", err)
		return
	}
	if r.Method != http.MethodHead && d.OnServed != nil {
		d.OnServed()
	}
}

// NotFound answers unrouted paths. The status is 200, not 404, which is
// what existing clients of this tool have always received.
func NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, NotFoundBody)
}

func orDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
