// Package ingest exposes the transformation pipeline over HTTP: one POST of
// a raw HL7 ADT^A01 message returns the FHIR Patient it produced, or an
// OperationOutcome explaining why the message was rejected.
package ingest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"

	"github.com/hospicebridge/adtbridge/admission"
	"github.com/hospicebridge/adtbridge/component"
	"github.com/hospicebridge/adtbridge/lib/fhirapi"
	"github.com/hospicebridge/adtbridge/lib/hl7"
	"github.com/hospicebridge/adtbridge/pipeline"
)

// Senders commonly use text/plain or the registered HL7v2 media type; the
// body is self-describing either way, so content negotiation stays lenient.
const maxMessageBytes = 1 << 20

// Sink receives every successfully produced Patient, e.g. to create it on a
// downstream FHIR server. Delivery failures fail the request: senders retry
// on 5xx, and silently dropping an admission is worse than a duplicate.
type Sink interface {
	Deliver(ctx context.Context, patient fhir.Patient) error
}

var _ component.Lifecycle = (*Component)(nil)

type Component struct {
	pipeline *pipeline.Pipeline
	sink     Sink
	// now supplies the reference date passed into the pipeline; the pipeline
	// itself never reads a clock.
	now func() time.Time
}

// New creates the ingest component. sink may be nil when no downstream
// delivery is configured.
func New(p *pipeline.Pipeline, sink Sink) *Component {
	return &Component{
		pipeline: p,
		sink:     sink,
		now:      time.Now,
	}
}

func (c *Component) Start() error {
	// Nothing to do
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	// Nothing to do
	return nil
}

func (c *Component) RegisterHttpHandlers(publicMux *http.ServeMux, _ *http.ServeMux) {
	publicMux.Handle("POST /ingest/Patient", http.HandlerFunc(c.handleIngest))
}

func (c *Component) handleIngest(httpResponse http.ResponseWriter, httpRequest *http.Request) {
	ctx := httpRequest.Context()
	body, err := io.ReadAll(http.MaxBytesReader(httpResponse, httpRequest.Body, maxMessageBytes))
	if err != nil {
		fhirapi.SendErrorResponse(ctx, httpResponse, fhirapi.BadRequestError("unable to read request body", err))
		return
	}

	result, err := c.pipeline.Process(string(body), c.now().UTC())
	if err != nil {
		fhirapi.SendErrorResponse(ctx, httpResponse, outcomeError(err))
		return
	}

	if c.sink != nil {
		if err := c.sink.Deliver(ctx, result.Patient); err != nil {
			fhirapi.SendErrorResponse(ctx, httpResponse, &fhirapi.Error{
				Message:   "failed to deliver Patient downstream",
				Cause:     err,
				IssueType: fhir.IssueTypeTransient,
			})
			return
		}
	}

	fhirapi.SendResponse(ctx, httpResponse, http.StatusOK, result.Patient)
}

// outcomeError translates a pipeline failure into the FHIR issue type that
// drives the response status: structural malformation and missing/invalid
// fields are 400s, an unsupported message type is a 422.
func outcomeError(err error) error {
	issueType := fhir.IssueTypeProcessing

	var parseErr *admission.ParseError
	switch {
	case errors.Is(err, hl7.ErrEmptyMessage),
		errors.Is(err, hl7.ErrMissingHeader),
		errors.Is(err, hl7.ErrMalformedDelimiters):
		issueType = fhir.IssueTypeStructure
	case errors.As(err, &parseErr):
		switch parseErr.Kind {
		case admission.KindUnsupportedMessageType:
			issueType = fhir.IssueTypeNotSupported
		case admission.KindMissingSegment, admission.KindMissingRequiredValue:
			issueType = fhir.IssueTypeRequired
		case admission.KindInvalidField:
			issueType = fhir.IssueTypeValue
		}
	}

	var pipelineErr *pipeline.Error
	message := err.Error()
	if errors.As(err, &pipelineErr) {
		// The inner error already names the offending segment or field; the
		// stage prefix is only useful internally.
		message = pipelineErr.Err.Error()
	}

	return &fhirapi.Error{
		Message:   message,
		Cause:     err,
		IssueType: issueType,
	}
}
