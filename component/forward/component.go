// Package forward creates produced Patient resources on a downstream FHIR
// server. It is the delivery sink behind the ingest, MLLP and relay
// components: they transform, forward persists.
package forward

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	fhirclient "github.com/SanteonNL/go-fhir-client"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"

	"github.com/hospicebridge/adtbridge/component"
	"github.com/hospicebridge/adtbridge/component/tracing"
	"github.com/hospicebridge/adtbridge/lib/logging"
	"github.com/hospicebridge/adtbridge/lib/to"
)

type Config struct {
	// FHIRBaseURL is the base URL of the downstream FHIR server. Empty
	// disables forwarding.
	FHIRBaseURL string `koanf:"fhirbaseurl"`
	// MaxRetries is the number of create attempts per Patient.
	MaxRetries int `koanf:"maxretries"`
}

func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
	}
}

func (c Config) Enabled() bool {
	return c.FHIRBaseURL != ""
}

var _ component.Lifecycle = (*Component)(nil)

type Component struct {
	config Config
	client fhirclient.Client
	// backoff returns the pause before retry attempt n (1-based).
	backoff func(attempt int) time.Duration
}

func New(config Config) (*Component, error) {
	baseURL, err := url.Parse(config.FHIRBaseURL)
	if err != nil {
		return nil, fmt.Errorf("forward: invalid FHIR base URL: %w", err)
	}
	// Outbound calls go through the instrumented transport so Patient
	// creates show up as client spans when tracing is enabled.
	httpClient := &http.Client{Transport: tracing.WrapTransport(nil)}
	return &Component{
		config: config,
		client: fhirclient.New(baseURL, httpClient, clientConfig()),
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt) * 500 * time.Millisecond
		},
	}, nil
}

func (c *Component) Start() error {
	// Nothing to do
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	// Nothing to do
	return nil
}

func (c *Component) RegisterHttpHandlers(_ *http.ServeMux, _ *http.ServeMux) {
	// Nothing to do
}

// Deliver creates the Patient on the downstream server, retrying transient
// failures up to the configured attempt count.
func (c *Component) Deliver(ctx context.Context, patient fhir.Patient) error {
	attempts := max(c.config.MaxRetries, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		var created fhir.Patient
		lastErr = c.client.CreateWithContext(ctx, patient, &created)
		if lastErr == nil {
			slog.Info("Created Patient on FHIR server",
				logging.FHIRServer(c.config.FHIRBaseURL),
				logging.PatientID(patientIdentifier(patient)),
				slog.String("id", to.Value(created.Id)))
			return nil
		}
		if attempt < attempts {
			slog.Warn("Patient create failed, retrying",
				logging.Error(lastErr), slog.Int("attempt", attempt))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff(attempt)):
			}
		}
	}
	return fmt.Errorf("forward: create Patient after %d attempts: %w", attempts, lastErr)
}

func clientConfig() *fhirclient.Config {
	config := fhirclient.DefaultConfig()
	config.DefaultOptions = []fhirclient.Option{
		fhirclient.RequestHeaders(map[string][]string{
			"Cache-Control": {"no-cache"},
		}),
	}
	config.Non2xxStatusHandler = func(response *http.Response, responseBody []byte) {
		slog.Debug("Non-2xx status from FHIR server",
			slog.String("method", response.Request.Method),
			slog.String("url", response.Request.URL.String()),
			slog.Int("status", response.StatusCode),
			slog.String("body", string(responseBody)))
	}
	return &config
}

func patientIdentifier(patient fhir.Patient) string {
	if len(patient.Identifier) == 0 {
		return ""
	}
	return to.EmptyString(patient.Identifier[0].Value)
}
