package services

import (
	"errors"
	"fmt"
)

// ErrNoValidItems is returned when no clothing item has both a value and a placement.
var ErrNoValidItems = errors.New("no clothing item has both a value and a placement")

// ConversionError means an image could not be decoded or re-encoded as PNG.
type ConversionError struct {
	MIMEType string
	Err      error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("failed to convert %s image to png: %v", e.MIMEType, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// EncodingError means the bytes could not be turned into a transport part.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("failed to encode image for transport: %v", e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// BlockedError is a content-safety refusal reported by the model.
type BlockedError struct {
	Reason  string
	Message string
}

func (e *BlockedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("request blocked: %s (%s)", e.Reason, e.Message)
	}
	return fmt.Sprintf("request blocked: %s", e.Reason)
}

// GenerationStoppedError is a finish reason other than a normal stop with no image.
type GenerationStoppedError struct {
	Reason string
}

func (e *GenerationStoppedError) Error() string {
	return fmt.Sprintf("generation stopped: %s", e.Reason)
}

// NoImageReturnedError carries whatever text the model answered with instead of an image.
type NoImageReturnedError struct {
	Text string
}

func (e *NoImageReturnedError) Error() string {
	if e.Text == "" {
		return "model returned no image"
	}
	return fmt.Sprintf("model returned no image (text: %s)", e.Text)
}
