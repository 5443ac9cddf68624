package logging

import (
	"fmt"
	"log/slog"
)

// Error returns a slog attribute for errors.
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}

// ControlID returns a slog attribute for the MSH-10 message control ID.
func ControlID(id string) slog.Attr {
	return slog.String("control_id", id)
}

// PatientID returns a slog attribute for patient identifiers (MRNs).
func PatientID(id string) slog.Attr {
	return slog.String("patient_id", id)
}

// Queue returns a slog attribute for AMQP queue names.
func Queue(name string) slog.Attr {
	return slog.String("queue", name)
}

// Remote returns a slog attribute for peer addresses.
func Remote(addr string) slog.Attr {
	return slog.String("remote", addr)
}

// FHIRServer returns a slog attribute for FHIR server URLs.
func FHIRServer(url string) slog.Attr {
	return slog.String("fhir_server", url)
}

// TypeOf returns a slog attribute with the type name of the given value.
func TypeOf(key string, v any) slog.Attr {
	return slog.String(key, fmt.Sprintf("%T", v))
}

// Component returns a slog attribute for a component type.
func Component(v any) slog.Attr {
	return TypeOf("component", v)
}
