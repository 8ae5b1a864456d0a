package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridebot/internal/repository"
	"ridebot/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrUnknownCallback):
		return http.StatusBadRequest

	case errors.Is(err, repository.ErrVersionConflict),
		errors.Is(err, service.ErrSessionIncomplete):
		return http.StatusConflict

	// Collaborator failures: the event should be redelivered.
	default:
		return http.StatusInternalServerError
	}
}
