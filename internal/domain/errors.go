package domain

import (
	"errors"
	"fmt"
)

// TransportError es un fallo de red o HTTP: conexión rechazada, timeout o status no-2xx.
type TransportError struct {
	URL        string
	StatusCode int // 0 si no hubo respuesta
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport: %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transport: %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ShapeKind distingue "el servidor dijo cero mercados" de "la respuesta no tiene la forma esperada".
type ShapeKind int

const (
	// ShapeAmbiguous: respuesta inesperada, se reintenta como un TransportError.
	ShapeAmbiguous ShapeKind = iota
	// ShapeConfirmedEmpty: la fuente confirmó que no hay mercados. No es un fallo.
	ShapeConfirmedEmpty
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeConfirmedEmpty:
		return "confirmed-empty"
	default:
		return "ambiguous"
	}
}

// ShapeError indica que llegó una respuesta pero no coincide con el schema esperado.
type ShapeError struct {
	Source string
	Kind   ShapeKind
	Reason string
	Err    error
}

func (e *ShapeError) Error() string {
	msg := fmt.Sprintf("shape: %s (%s): %s", e.Source, e.Kind, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ShapeError) Unwrap() error { return e.Err }

// NewAmbiguousShape construye un ShapeError reintentable.
func NewAmbiguousShape(source, reason string, err error) *ShapeError {
	return &ShapeError{Source: source, Kind: ShapeAmbiguous, Reason: reason, Err: err}
}

// NewConfirmedEmpty construye el ShapeError que representa un resultado vacío válido.
func NewConfirmedEmpty(source string) *ShapeError {
	return &ShapeError{Source: source, Kind: ShapeConfirmedEmpty, Reason: "source reported zero markets"}
}

// IsConfirmedEmpty devuelve true si err es un ShapeError de tipo confirmed-empty.
func IsConfirmedEmpty(err error) bool {
	var se *ShapeError
	return errors.As(err, &se) && se.Kind == ShapeConfirmedEmpty
}

// IsRetryable devuelve true para TransportError y ShapeError ambiguo.
func IsRetryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	var se *ShapeError
	return errors.As(err, &se) && se.Kind == ShapeAmbiguous
}

// ParseError es un fallo al parsear un campo de un mercado concreto.
// Nunca aborta el batch: solo invalida el predicado correspondiente de ese mercado.
type ParseError struct {
	MarketID string
	Field    string // "outcome_prices" | "expiration_time"
	Value    string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s of market %s (%q): %v", e.Field, e.MarketID, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// PipelineError envuelve fallos de las etapas posteriores al fetch (render, entrega).
type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
