package fhirapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

func TestSendResponse(t *testing.T) {
	t.Run("send response", func(t *testing.T) {
		resource := map[string]interface{}{
			"resourceType": "Patient",
			"id":           "123",
			"name": []map[string]interface{}{
				{"family": "Doe", "given": []string{"John"}},
			},
		}

		recorder := httptest.NewRecorder()
		SendResponse(context.Background(), recorder, http.StatusOK, resource)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, JSONMimeType, recorder.Header().Get("Content-Type"))
		assert.Equal(t, strconv.Itoa(len(recorder.Body.Bytes())), recorder.Header().Get("Content-Length"))

		body := recorder.Body.String()
		assert.Contains(t, body, `"resourceType": "Patient"`)
		assert.Contains(t, body, `"family": "Doe"`)
	})
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("invalid input maps to 400", func(t *testing.T) {
		apiError := &Error{
			Message:   "message is not valid HL7",
			Cause:     errors.New("tokenize failed"),
			IssueType: fhir.IssueTypeStructure,
		}

		recorder := httptest.NewRecorder()
		SendErrorResponse(context.Background(), recorder, apiError)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		body := recorder.Body.String()
		assert.Contains(t, body, `"resourceType": "OperationOutcome"`)
		assert.Contains(t, body, `"code": "structure"`)
		assert.Contains(t, body, `"diagnostics": "message is not valid HL7"`)
	})

	t.Run("unsupported message type maps to 422", func(t *testing.T) {
		apiError := &Error{
			Message:   "unsupported message type",
			IssueType: fhir.IssueTypeNotSupported,
		}

		recorder := httptest.NewRecorder()
		SendErrorResponse(context.Background(), recorder, apiError)

		assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	})

	t.Run("other errors map to a generic 500", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		SendErrorResponse(context.Background(), recorder, errors.New("downstream connection failed"))

		assert.Equal(t, http.StatusInternalServerError, recorder.Code)
		body := recorder.Body.String()
		assert.Contains(t, body, `"code": "processing"`)
		assert.Contains(t, body, `"diagnostics": "An internal server error occurred"`)
	})
}
