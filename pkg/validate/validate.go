// Package validate implements the connection rule of the editor: sources may only
// feed destinations.
package validate

import (
	"errors"
	"fmt"

	"github.com/ritzau/flow-editor/pkg/model"
)

var (
	// ErrUnknownEndpoint is returned when a connection references a node that does not exist
	ErrUnknownEndpoint = errors.New("unknown endpoint")
	// ErrInvalidKindPair is returned when a connection is not source -> destination
	ErrInvalidKindPair = errors.New("invalid kind pair")
)

// Reason explains why a connection request was rejected
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonUnknownEndpoint Reason = "unknown_endpoint"
	ReasonInvalidKindPair Reason = "invalid_kind_pair"
)

// Request is a candidate connection between two node IDs
type Request struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Result is the outcome of validating a Request
type Result struct {
	Accepted bool
	Reason   Reason
	Request  Request
}

// RejectionError carries a rejected Result as an error
type RejectionError struct {
	Reason  Reason
	Request Request
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("connect %s -> %s rejected: %s", e.Request.Source, e.Request.Target, e.Message())
}

// Unwrap maps the reason onto its sentinel error
func (e *RejectionError) Unwrap() error {
	switch e.Reason {
	case ReasonUnknownEndpoint:
		return ErrUnknownEndpoint
	case ReasonInvalidKindPair:
		return ErrInvalidKindPair
	default:
		return nil
	}
}

// Message returns the notice shown to the user
func (e *RejectionError) Message() string {
	switch e.Reason {
	case ReasonUnknownEndpoint:
		return "Both ends of a connection must be existing nodes."
	case ReasonInvalidKindPair:
		return "You can only connect a Source to a Destination."
	default:
		return string(e.Reason)
	}
}

// Err returns nil for accepted results and a *RejectionError otherwise
func (r Result) Err() error {
	if r.Accepted {
		return nil
	}
	return &RejectionError{Reason: r.Reason, Request: r.Request}
}

// Validate checks a connection request against the current node set.
// It has no side effects.
func Validate(req Request, nodes []model.Node) Result {
	source, sourceOK := model.FindNode(nodes, req.Source)
	target, targetOK := model.FindNode(nodes, req.Target)
	if !sourceOK || !targetOK {
		return Result{Reason: ReasonUnknownEndpoint, Request: req}
	}

	if !allowed(source.Kind, target.Kind) {
		return Result{Reason: ReasonInvalidKindPair, Request: req}
	}

	return Result{Accepted: true, Request: req}
}

// allowed reports whether a node of kind from may feed a node of kind to
func allowed(from, to model.NodeKind) bool {
	switch from {
	case model.KindSource:
		return to == model.KindDestination
	case model.KindDestination:
		return false
	default:
		return false
	}
}
