package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/caraka20/tutontrack/internal/middleware"
	"github.com/caraka20/tutontrack/internal/models"
	appErrors "github.com/caraka20/tutontrack/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.Claims(c)
	if !ok {
		return nil
	}
	return claims
}

func adminIDFromContext(c *gin.Context) int64 {
	if claims := claimsFromContext(c); claims != nil {
		return claims.AdminID
	}
	return 0
}

// idParam parses a positive integer path parameter.
func idParam(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, name+" must be a positive integer")
	}
	return id, nil
}

// optionalIntQuery returns nil when the query parameter is absent.
func optionalIntQuery(c *gin.Context, name string) (*int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, name+" must be an integer")
	}
	return &v, nil
}

func boolQuery(c *gin.Context, name string) (bool, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, appErrors.Clone(appErrors.ErrValidation, name+" must be a boolean")
	}
	return v, nil
}

func invalidPayload(err error) error {
	return appErrors.Validation(err, "invalid payload")
}
