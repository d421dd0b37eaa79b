package api

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-motionblend/pkg/bvh"
	"github.com/teslashibe/go-motionblend/pkg/clips"
	"github.com/teslashibe/go-motionblend/pkg/manifold"
	"github.com/teslashibe/go-motionblend/pkg/motion"
	"github.com/teslashibe/go-motionblend/pkg/phase"
	"github.com/teslashibe/go-motionblend/pkg/skeleton"
	"github.com/teslashibe/go-motionblend/pkg/store"
	"github.com/teslashibe/go-motionblend/pkg/transition"
)

// Stable error codes.
const (
	CodePhaseEncoding = "PHASE_ENCODING_ERROR"
	CodeDecode        = "MANIFOLD_DECODE_ERROR"
	CodeIncompatible  = "INCOMPATIBLE_SKELETON"
	CodeSerialization = "SERIALIZATION_ERROR"
	CodeInvalid       = "INVALID_REQUEST"
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeInternal      = "INTERNAL"
)

// ErrorBody is the payload of an error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps ErrorBody as {"error": {...}}.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// errInvalid marks request-shape problems found by the handlers.
var errInvalid = errors.New("invalid request")

// classify maps an error to an HTTP status and a stable code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, phase.ErrEncoding),
		errors.Is(err, motion.ErrWindowLength),
		errors.Is(err, motion.ErrMalformed),
		errors.Is(err, motion.ErrNonFinite):
		return fiber.StatusUnprocessableEntity, CodePhaseEncoding
	case errors.Is(err, manifold.ErrDecode):
		return fiber.StatusUnprocessableEntity, CodeDecode
	case errors.Is(err, skeleton.ErrIncompatible):
		return fiber.StatusUnprocessableEntity, CodeIncompatible
	case errors.Is(err, bvh.ErrSerialization):
		return fiber.StatusInternalServerError, CodeSerialization
	case errors.Is(err, store.ErrNotFound), errors.Is(err, clips.ErrNotFound):
		return fiber.StatusNotFound, CodeNotFound
	case errors.Is(err, clips.ErrAlreadyPlaying):
		return fiber.StatusConflict, CodeConflict
	case errors.Is(err, errInvalid), errors.Is(err, transition.ErrInvalidDescriptor):
		return fiber.StatusBadRequest, CodeInvalid
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusServiceUnavailable, CodeInternal
	default:
		return fiber.StatusInternalServerError, CodeInternal
	}
}

// errorBody builds the payload for err. Internal errors never expose their
// message.
func errorBody(err error) (int, ErrorBody) {
	status, code := classify(err)
	msg := err.Error()
	if code == CodeInternal {
		msg = "internal error"
	}
	return status, ErrorBody{Code: code, Message: msg}
}
