package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ahrav/go-agrisense/internal/domain"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type errorResponse struct {
	Error ErrorBody `json:"error"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindAuthorization:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// invalidInput tags a request decoding failure as ErrInvalidInput.
func invalidInput(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := s.describe(err)
	body.RequestID = c.Response().Header().Get(echo.HeaderXRequestID)

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(status)
	} else {
		werr = c.JSON(status, errorResponse{Error: body})
	}
	if werr != nil {
		s.logger.Warn("failed to write error response", zap.Error(werr))
	}
}

// describe converts err into a status and body. Internal failures are
// logged and reported without detail.
func (s *Server) describe(err error) (int, ErrorBody) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, ErrorBody{Code: httpErrorCode(he.Code), Message: fmt.Sprint(he.Message)}
	}

	kind := domain.KindOf(err)
	body := ErrorBody{Code: domain.CodeOf(err), Message: err.Error()}
	if kind == domain.KindInternal {
		s.logger.Error("request failed", zap.Error(err))
		body.Message = "internal error"
	}
	return StatusFor(kind), body
}

// httpErrorCode names transport-level failures that never reach the
// engine.
func httpErrorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return domain.ErrInvalidInput.Code
	case http.StatusNotFound:
		return "ERR-ROUTE-NOT-FOUND"
	case http.StatusMethodNotAllowed:
		return "ERR-METHOD-NOT-ALLOWED"
	case http.StatusTooManyRequests:
		return "ERR-RATE-LIMITED"
	case http.StatusRequestEntityTooLarge:
		return "ERR-BODY-TOO-LARGE"
	default:
		return "ERR-HTTP"
	}
}
