package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"qrshare/internal/handler"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startServer serves h on a loopback port and returns its base URL.
func startServer(t *testing.T, h http.Handler) string {
	t.Helper()
	srv, err := Listen(Config{Host: "127.0.0.1", Port: 0, Handler: h, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("Listen() error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Serve() error: %v", err)
		}
	})
	return "http://127.0.0.1:" + strconv.Itoa(srv.Port())
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, body
}

func TestServer_Routes(t *testing.T) {
	data := []byte("the shared bytes\x00\xff")
	path := filepath.Join(t.TempDir(), "archive.tar")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	base := startServer(t, NewHandler(&handler.Download{File: handler.DiskFile{Path: path}, Logger: quietLogger()}, quietLogger()))

	resp, body := get(t, base+"/download")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/download status = %d, want 200", resp.StatusCode)
	}
	if string(body) != string(data) {
		t.Errorf("/download body = %q, want %q", body, data)
	}
	if got := resp.Header.Get("Content-Disposition"); got != `attachment; filename="archive.tar"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Error("expected X-Request-Id header")
	}

	for _, p := range []string{
		"/", "/anything-else", "/download/", "/downloads", "/download/archive.tar",
		"//download", "/./download", "/x/../download", "/a//b",
	} {
		resp, body := get(t, base+p)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d, want 200", p, resp.StatusCode)
		}
		if string(body) != handler.NotFoundBody {
			t.Errorf("%s body = %q, want %q", p, body, handler.NotFoundBody)
		}
	}
}

func TestRouter_NonCanonicalPathsNotFound(t *testing.T) {
	r := NewRouter(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "FILE")
	}))

	tests := []struct {
		path string
		want string
	}{
		{"/download", "FILE"},
		{"//download", handler.NotFoundBody},
		{"/./download", handler.NotFoundBody},
		{"/x/../download", handler.NotFoundBody},
		{"/download/.", handler.NotFoundBody},
		{"/a//b", handler.NotFoundBody},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://h"+tt.path, nil)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want 200 (Location %q)", rec.Code, rec.Header().Get("Location"))
			}
			if got := rec.Body.String(); got != tt.want {
				t.Errorf("body = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestServer_AnyMethodOnDownload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	base := startServer(t, NewHandler(&handler.Download{File: handler.DiskFile{Path: path}}, quietLogger()))

	resp, err := http.Post(base+"/download", "text/plain", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "abc" {
		t.Errorf("POST /download = %d %q, want 200 %q", resp.StatusCode, body, "abc")
	}
}

// gatedFile fails the first read only after a second read has started, so
// the failing and the healthy request are in flight together.
type gatedFile struct {
	calls   atomic.Int32
	started chan struct{}
	once    sync.Once
}

func (f *gatedFile) Name() string { return "shared.bin" }

func (f *gatedFile) ReadAll() ([]byte, error) {
	if f.calls.Add(1) == 1 {
		select {
		case <-f.started:
		case <-time.After(5 * time.Second):
		}
		return nil, errors.New("simulated read failure")
	}
	f.once.Do(func() { close(f.started) })
	return []byte("healthy"), nil
}

func TestServer_ReadFailureIsolated(t *testing.T) {
	f := &gatedFile{started: make(chan struct{})}
	base := startServer(t, NewHandler(&handler.Download{File: f, Logger: quietLogger()}, quietLogger()))

	type result struct {
		status int
		body   string
	}
	results := make(chan result, 2)
	fetch := func() {
		resp, err := http.Get(base + "/download")
		if err != nil {
			results <- result{status: -1, body: err.Error()}
			return
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		results <- result{status: resp.StatusCode, body: string(b)}
	}
	go fetch()
	// Let the first request reach ReadAll before starting the second.
	deadline := time.Now().Add(5 * time.Second)
	for f.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	go fetch()

	var ok, failed int
	for i := 0; i < 2; i++ {
		r := <-results
		switch r.status {
		case http.StatusOK:
			ok++
			if r.body != "healthy" {
				t.Errorf("healthy body = %q", r.body)
			}
		case http.StatusInternalServerError:
			failed++
		default:
			t.Errorf("unexpected result %+v", r)
		}
	}
	if ok != 1 || failed != 1 {
		t.Errorf("got %d ok and %d failed, want 1 and 1", ok, failed)
	}

	// The server keeps serving after the failure.
	resp, body := get(t, base+"/download")
	if resp.StatusCode != http.StatusOK || string(body) != "healthy" {
		t.Errorf("follow-up GET = %d %q", resp.StatusCode, body)
	}
}

func TestListen_PortInUse(t *testing.T) {
	first, err := Listen(Config{Host: "127.0.0.1", Handler: http.NotFoundHandler(), Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()

	_, err = Listen(Config{Host: "127.0.0.1", Port: first.Port(), Handler: http.NotFoundHandler(), Logger: quietLogger()})
	if !errors.Is(err, ErrBind) {
		t.Errorf("Listen() error = %v, want ErrBind", err)
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	srv, err := Listen(Config{Host: "127.0.0.1", Handler: http.NotFoundHandler(), Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v, want nil", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServe_ForcesCloseAfterShutdownTimeout(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	stuck := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(entered)
		<-release
	})

	srv, err := Listen(Config{
		Host:            "127.0.0.1",
		Handler:         stuck,
		Logger:          quietLogger(),
		ShutdownTimeout: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	clientErr := make(chan error, 1)
	go func() {
		resp, err := http.Get("http://127.0.0.1:" + strconv.Itoa(srv.Port()) + "/")
		if err == nil {
			resp.Body.Close()
		}
		clientErr <- err
	}()
	<-entered

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Serve() error = %v, want deadline exceeded", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after the shutdown timeout")
	}
	select {
	case err := <-clientErr:
		if err == nil {
			t.Error("stuck request completed, want its connection dropped")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stuck request was not dropped")
	}
}

func TestClose_WithoutServe(t *testing.T) {
	srv, err := Listen(Config{Host: "127.0.0.1", Handler: http.NotFoundHandler(), Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
	// The port is free again.
	again, err := Listen(Config{Host: "127.0.0.1", Port: srv.Port(), Handler: http.NotFoundHandler(), Logger: quietLogger()})
	if err != nil {
		t.Fatalf("re-Listen() error: %v", err)
	}
	again.Close()
}
