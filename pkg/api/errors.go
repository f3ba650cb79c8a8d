package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/swarmrouter/core/pkg/models"
)

// errorEnvelope is the {error:{code,message}} shape of §7.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// writeError maps a domain error to its HTTP status and {error:{code,
// message}} body, mirroring the teacher's mapServiceError.
func writeError(c *gin.Context, err error) {
	var de *models.Error
	if errors.As(err, &de) {
		c.JSON(codeStatus(de.Code), envelope(string(de.Code), de.Message))
		return
	}
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, envelope(string(models.CodeNotFound), "resource not found"))
		return
	}

	slog.Error("unexpected api error", "error", err)
	c.JSON(http.StatusInternalServerError, envelope("INTERNAL", "internal server error"))
}

func envelope(code, message string) errorEnvelope {
	var e errorEnvelope
	e.Error.Code = code
	e.Error.Message = message
	return e
}

func codeStatus(code models.Code) int {
	switch code {
	case models.CodeMissingParam, models.CodeInvalidParam, models.CodeInvalidBody:
		return http.StatusBadRequest
	case models.CodeNotFound:
		return http.StatusNotFound
	case models.CodeNoModel:
		return http.StatusUnprocessableEntity
	case models.CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
