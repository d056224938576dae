// Package app wires the file server, link construction and QR rendering
// into one run of qrshare.
package app

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/zeebo/blake3"
	"golang.org/x/term"

	"qrshare/internal/config"
	"qrshare/internal/handler"
	"qrshare/internal/network"
	"qrshare/internal/server"
	"qrshare/internal/symbol"
)

// displayTimeout bounds the external renderer so a hung utility cannot
// hold up startup.
const displayTimeout = 10 * time.Second

// Options configures an App. Zero values pick production behavior.
type Options struct {
	FilePath string
	Config   config.Config
	Logger   *slog.Logger
	Stdout   io.Writer

	// BindHost defaults to the wildcard address.
	BindHost string
	Resolver network.Resolver
	// Display replaces the renderer chosen from Config.Display.
	Display symbol.Displayer
	// IsTerminal decides whether auto display mode draws anything.
	IsTerminal func(io.Writer) bool
}

// App runs one sharing session.
type App struct {
	opts   Options
	cfg    config.Config
	logger *slog.Logger
	stdout io.Writer
}

// New fills in defaults for opts.
func New(opts Options) *App {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Resolver == nil {
		opts.Resolver = network.NewResolver()
	}
	if opts.IsTerminal == nil {
		opts.IsTerminal = isTerminal
	}
	return &App{opts: opts, cfg: opts.Config, logger: opts.Logger, stdout: opts.Stdout}
}

// Session is a started server.
type Session struct {
	Link string
	Port int

	done   chan error
	cancel context.CancelFunc
	once   sync.Once
	err    error
}

// Wait blocks until the server stops: the parent context ends, --once saw
// its download, or the listener failed.
func (s *Session) Wait() error {
	s.once.Do(func() {
		s.err = <-s.done
		s.cancel()
	})
	return s.err
}

// Stop asks the server to shut down. Wait reports the outcome.
func (s *Session) Stop() { s.cancel() }

// Start binds the listener and begins serving, then advertises the link.
// Only a bind failure is returned; address lookup, raster and terminal
// problems are logged and the session carries on.
func (a *App) Start(ctx context.Context) (*Session, error) {
	path, err := filepath.Abs(a.opts.FilePath)
	if err != nil {
		path = a.opts.FilePath
	}
	file := handler.DiskFile{Path: path}

	ctx, cancel := context.WithCancel(ctx)
	download := &handler.Download{File: file, Logger: a.logger}
	if a.cfg.Once {
		download.OnServed = sync.OnceFunc(func() {
			a.logger.Info("download complete, shutting down", "file", file.Name())
			cancel()
		})
	}

	port := a.cfg.Port
	if port == 0 {
		port = network.RandomPort()
	}
	srv, err := server.Listen(server.Config{
		Host:    a.opts.BindHost,
		Port:    port,
		Handler: server.NewHandler(download, a.logger),
		Logger:  a.logger,
	})
	if err != nil {
		cancel()
		return nil, err
	}

	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx)
	}()

	host, err := a.opts.Resolver.Resolve()
	if err != nil {
		a.logger.Warn("no LAN address found, the link only works on this host",
			"error", err, "fallback", network.Fallback)
		host = network.Fallback
	}
	link := network.BuildLink(host, srv.Port())
	fmt.Fprintf(a.stdout, "Download link: %s\n", link)

	if err := a.writeRaster(link); err != nil {
		a.logger.Warn("could not write QR code image", "path", a.cfg.Output, "error", err)
	}
	if err := a.display(ctx, link, file.Name()); err != nil {
		a.logger.Warn("could not show QR code in terminal", "error", err)
	}
	a.reportFile(path)

	return &Session{Link: link, Port: srv.Port(), done: done, cancel: cancel}, nil
}

// Run starts a session and waits for it to end.
func Run(ctx context.Context, opts Options) error {
	s, err := New(opts).Start(ctx)
	if err != nil {
		return err
	}
	return s.Wait()
}

func (a *App) writeRaster(link string) error {
	level, err := symbol.ParseLevel(a.cfg.Level)
	if err != nil {
		return err
	}
	m, err := symbol.Encode(link, level)
	if err != nil {
		return err
	}
	img, err := symbol.Render(m, a.cfg.Scale, a.cfg.Border)
	if err != nil {
		return err
	}
	if err := symbol.WritePNG(img, a.cfg.Output); err != nil {
		return err
	}
	a.logger.Info("QR code written", "path", a.cfg.Output, "pixels", img.Bounds().Dx(), "modules", m.Size())
	return nil
}

func (a *App) displayer() symbol.Displayer {
	if a.cfg.Display == config.DisplayNone {
		return nil
	}
	if a.opts.Display != nil {
		return a.opts.Display
	}

	level, err := symbol.ParseLevel(a.cfg.Level)
	if err != nil {
		level = symbol.Medium
	}
	builtin := symbol.Builtin{Level: level}
	switch a.cfg.Display {
	case config.DisplayQREncode:
		return symbol.QREncode(a.cfg.QREncode)
	case config.DisplayBuiltin:
		return builtin
	}
	if !a.opts.IsTerminal(a.stdout) {
		a.logger.Debug("stdout is not a terminal, skipping terminal QR code")
		return nil
	}
	return symbol.Chain{symbol.QREncode(a.cfg.QREncode), builtin}
}

// display draws the code for link under a caption. Output is buffered so
// a failing renderer leaves nothing half-drawn.
func (a *App) display(ctx context.Context, link, name string) error {
	d := a.displayer()
	if d == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, displayTimeout)
	defer cancel()

	var buf bytes.Buffer
	if err := d.Display(ctx, link, &buf); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, symbol.Caption(name))
	_, err := buf.WriteTo(a.stdout)
	return err
}

// reportFile logs the size and digest of the file so the receiver can
// check what they got. An unreadable file is only a warning: requests
// fail one by one until it becomes readable.
func (a *App) reportFile(path string) {
	size, digest, err := digestFile(path)
	if err != nil {
		a.logger.Warn("shared file is not readable, downloads will fail until it is", "path", path, "error", err)
		return
	}
	a.logger.Info("sharing file",
		"path", path,
		"size", humanize.Bytes(uint64(size)),
		"blake3", digest,
	)
}

func digestFile(path string) (int64, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", err
	}
	defer f.Close()

	h := blake3.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, "", err
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
