package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/utafrali/catalogsearch/pkg/errors"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// errorEnvelope is the {"error": {...}} half of the httputil.Response shape.
type errorEnvelope struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// statusErrors maps the 4xx statuses a catalog service answers with onto the
// matching AppError constructor.
var statusErrors = map[int]func(string) *apperrors.AppError{
	http.StatusBadRequest:          apperrors.InvalidInput,
	http.StatusUnauthorized:        apperrors.Unauthorized,
	http.StatusForbidden:           apperrors.Forbidden,
	http.StatusConflict:            apperrors.Conflict,
	http.StatusGone:                apperrors.Gone,
	http.StatusUnprocessableEntity: apperrors.Unprocessable,
	http.StatusServiceUnavailable:  apperrors.ServiceUnavailable,
}

// ParseResponseError consumes and closes the body of a non-2xx response and
// turns it into an error named after service. Enveloped errors keep their
// message and become AppErrors; anything else is reported with the raw body.
func ParseResponseError(resp *http.Response, service string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%s returned status %d: read body: %w", service, resp.StatusCode, err)
	}

	var env errorEnvelope
	if json.Unmarshal(body, &env) != nil || env.Error == nil {
		return fmt.Errorf("%s returned status %d: %s", service, resp.StatusCode, body)
	}

	msg := env.Error.Message
	if resp.StatusCode == http.StatusNotFound {
		return apperrors.NotFound(service, msg)
	}
	if ctor, ok := statusErrors[resp.StatusCode]; ok {
		return ctor(service + ": " + msg)
	}
	return &apperrors.AppError{
		Code:    env.Error.Code,
		Message: service + ": " + msg,
		Status:  resp.StatusCode,
	}
}
