package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/studyassist/rag-server/internal/config"
	"github.com/studyassist/rag-server/internal/httpapi"
)

// StartHTTPServer starts the HTTP API server
func StartHTTPServer(services *Services, settings *config.Settings) error {
	srv := NewHTTPServer(services, settings)

	slog.Info("Server listening (HTTP)", "addr", srv.Addr)
	return srv.ListenAndServe()
}

// NewHTTPServer creates the HTTP server over the wired services
func NewHTTPServer(services *Services, settings *config.Settings) *http.Server {
	api := httpapi.New(services.Ingest, services.Store, services.Coordinator)
	addr := fmt.Sprintf("%s:%d", settings.Host, settings.Port)

	return &http.Server{
		Addr:    addr,
		Handler: api.Routes(),
	}
}
