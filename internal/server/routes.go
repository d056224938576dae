package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"qrshare/internal/handler"
	"qrshare/internal/network"
)

// NewRouter sends the download route, for any method, to download and
// every other path to handler.NotFound. Paths are matched as sent: a
// non-canonical form such as //download is not found, never redirected.
func NewRouter(download http.Handler) *mux.Router {
	r := mux.NewRouter().SkipClean(true)
	r.Handle(network.DownloadPath, download)
	r.NotFoundHandler = http.HandlerFunc(handler.NotFound)
	return r
}

// NewHandler is NewRouter wrapped in request logging and panic recovery.
// The wrapping sits outside the router so unrouted requests are covered too.
func NewHandler(download http.Handler, logger *slog.Logger) http.Handler {
	return handler.Chain(NewRouter(download),
		handler.RequestLog(logger),
		handler.Recover(logger),
	)
}
