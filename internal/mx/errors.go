package mx

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/noah-isme/mx-paylink/internal/common"
)

// Error is returned for any failed checkout API call. Status is zero for
// transport failures.
type Error struct {
	Op      string
	Status  int
	Message string
	Body    json.RawMessage
	Err     error
}

func newStatusError(op string, status int, body []byte) *Error {
	e := &Error{Op: op, Status: status}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return e
	}
	if json.Valid(trimmed) {
		e.Body = json.RawMessage(trimmed)
		var payload struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(trimmed, &payload); err == nil {
			e.Message = payload.Message
		}
		return e
	}
	raw, _ := json.Marshal(string(trimmed))
	e.Body = raw
	return e
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("mx %s: %v", e.Op, e.Err)
	case e.Message != "":
		return fmt.Sprintf("mx %s: status %d: %s", e.Op, e.Status, e.Message)
	default:
		return fmt.Sprintf("mx %s: status %d", e.Op, e.Status)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus is the status to mirror to callers.
func (e *Error) HTTPStatus() int {
	if e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}

// AsAppError converts err into an upstream AppError. The upstream message wins
// over fallback and the upstream body becomes the error details.
func AsAppError(err error, fallback string) *common.AppError {
	var mxErr *Error
	if !errors.As(err, &mxErr) {
		return common.NewAppError(common.KindUpstream, fallback, http.StatusInternalServerError, err)
	}
	message := mxErr.Message
	if message == "" {
		message = fallback
	}
	appErr := common.NewAppError(common.KindUpstream, message, mxErr.HTTPStatus(), err)
	if len(mxErr.Body) > 0 {
		appErr.Details = mxErr.Body
	}
	return appErr
}
