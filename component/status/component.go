package status

import (
	"context"
	"net/http"

	"github.com/hospicebridge/adtbridge/component"
	"github.com/hospicebridge/adtbridge/lib/fhirapi"
)

var _ component.Lifecycle = (*Component)(nil)

type Component struct {
}

// New creates an instance of the status component, which provides a simple
// health check endpoint on the internal interface.
func New() *Component {
	return &Component{}
}

func (c Component) Start() error {
	// Nothing to do
	return nil
}

func (c Component) Stop(ctx context.Context) error {
	// Nothing to do
	return nil
}

func (c Component) RegisterHttpHandlers(_ *http.ServeMux, internalMux *http.ServeMux) {
	internalMux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		fhirapi.SendResponse(r.Context(), w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": "adtbridge",
			"version": Version(),
		})
	})
}
