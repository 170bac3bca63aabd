package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/africoin-labs/wallet_service/internal/domain/entities"
	domainErrors "github.com/africoin-labs/wallet_service/internal/domain/errors"
)

// getUserID extracts and validates user ID from context
func getUserID(c *gin.Context) (uuid.UUID, error) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, fmt.Errorf("user ID not found in context")
	}

	switch v := userIDVal.(type) {
	case uuid.UUID:
		return v, nil
	case string:
		return uuid.Parse(v)
	default:
		return uuid.Nil, fmt.Errorf("invalid user ID type in context")
	}
}

// getRequestID extracts request ID from context
func getRequestID(c *gin.Context) string {
	if reqID, exists := c.Get("request_id"); exists {
		if id, ok := reqID.(string); ok {
			return id
		}
	}
	return ""
}

// respondError sends a standardized error response
func respondError(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.JSON(status, entities.ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// respondDomainError maps a domain error to the right HTTP status
func respondDomainError(c *gin.Context, err error) {
	code := domainErrors.GetErrorCode(err)
	details := domainErrors.GetErrorDetails(err)

	switch {
	case domainErrors.IsValidation(err), errors.Is(err, domainErrors.ErrUnsupportedToken):
		respondError(c, http.StatusBadRequest, code, err.Error(), details)
	case domainErrors.IsNotFound(err):
		respondError(c, http.StatusNotFound, code, err.Error(), details)
	case domainErrors.IsConflict(err):
		respondError(c, http.StatusConflict, code, err.Error(), details)
	case errors.Is(err, domainErrors.ErrSubmissionFailure), errors.Is(err, domainErrors.ErrNetworkFailure):
		respondError(c, http.StatusBadGateway, code, err.Error(), details)
	default:
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError,
			"an internal error occurred", nil)
	}
}

// respondUnauthorized sends an unauthorized error
func respondUnauthorized(c *gin.Context, message string) {
	respondError(c, http.StatusUnauthorized, ErrCodeUnauthorized, message, nil)
}

// respondBadRequest sends a bad request error
func respondBadRequest(c *gin.Context, message string, details ...map[string]interface{}) {
	var det map[string]interface{}
	if len(details) > 0 {
		det = details[0]
	}
	respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, message, det)
}

// respondInternalError sends an internal server error
func respondInternalError(c *gin.Context, message string) {
	respondError(c, http.StatusInternalServerError, ErrCodeInternalError, message, nil)
}

// respondSuccess sends a success response with data
func respondSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// respondCreated sends a created response with data
func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// parseIntParam parses a query parameter to int with default value
func parseIntParam(c *gin.Context, param string, defaultVal int) int {
	if val := c.Query(param); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
	}
	return defaultVal
}
