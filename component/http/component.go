package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/hospicebridge/adtbridge/component"
)

var _ component.Lifecycle = (*Component)(nil)

type Config struct {
	// PublicAddress is where integration traffic (message ingestion) is served.
	PublicAddress string `koanf:"publicaddress"`
	// InternalAddress is where operational endpoints (status) are served.
	InternalAddress string `koanf:"internaladdress"`
}

func DefaultConfig() Config {
	return Config{
		PublicAddress:   ":8080",
		InternalAddress: ":8081",
	}
}

type Component struct {
	publicAddr     string
	internalAddr   string
	publicMux      *http.ServeMux
	publicServer   *http.Server
	internalMux    *http.ServeMux
	internalServer *http.Server
	// Handler wraps the public mux before serving; used to attach tracing middleware.
	Handler func(http.Handler) http.Handler
}

// New creates an instance of the HTTP component, which handles the HTTP interfaces for the application.
func New(config Config, publicMux *http.ServeMux, internalMux *http.ServeMux) *Component {
	if config.PublicAddress == "" {
		config.PublicAddress = DefaultConfig().PublicAddress
	}
	if config.InternalAddress == "" {
		config.InternalAddress = DefaultConfig().InternalAddress
	}
	return &Component{
		publicAddr:   config.PublicAddress,
		internalAddr: config.InternalAddress,
		publicMux:    publicMux,
		internalMux:  internalMux,
	}
}

func (c *Component) Start() error {
	publicHandler := http.Handler(c.publicMux)
	if c.Handler != nil {
		publicHandler = c.Handler(publicHandler)
	}
	c.publicServer = &http.Server{
		Addr:    c.publicAddr,
		Handler: publicHandler,
	}
	c.internalServer = &http.Server{
		Addr:    c.internalAddr,
		Handler: c.internalMux,
	}
	log.Info().Msgf("Starting HTTP servers (public-address: %s, internal-address: %s)", c.publicServer.Addr, c.internalServer.Addr)
	go func() {
		if err := c.publicServer.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				log.Err(err).Msg("Failed to start public HTTP server")
			}
		}
	}()
	go func() {
		if err := c.internalServer.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				log.Err(err).Msg("Failed to start internal HTTP server")
			}
		}
	}()
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	if err := c.publicServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown public HTTP server: %w", err)
	}
	if err := c.internalServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown internal HTTP server: %w", err)
	}
	return nil
}

func (c *Component) RegisterHttpHandlers(publicMux *http.ServeMux, _ *http.ServeMux) {
	// Nothing to do here
}
