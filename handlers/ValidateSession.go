package handlers

import (
	"errors"
	"net/http"
	"strings"

	"portal/models"
	"portal/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// SessionFromRequest resolves the authenticated session from the bearer
// token. The token is issued by the external auth provider; we verify the
// signature and expiry and lift the identity claims, nothing more.
func SessionFromRequest(c *gin.Context) (*models.Session, error) {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader == "" {
		return nil, errors.New("missing Authorization header")
	}

	sessionToken := authHeader
	const bearerPrefix = "Bearer "
	if strings.HasPrefix(sessionToken, bearerPrefix) {
		sessionToken = strings.TrimSpace(strings.TrimPrefix(sessionToken, bearerPrefix))
	}
	if sessionToken == "" {
		return nil, errors.New("Authorization header missing token")
	}

	parsedToken, err := utils.ValidateJWT(sessionToken)
	if err != nil || !parsedToken.Valid {
		return nil, errors.New("invalid or expired token")
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	if utils.TokenExpired(claims) {
		return nil, errors.New("token expired")
	}

	session := &models.Session{
		UserID:       claimString(claims, "sub", "userId", "user_id"),
		Email:        claimString(claims, "email"),
		ThirdPartyID: claimString(claims, "thirdPartyId", "third_party_id"),
		Token:        sessionToken,
	}
	if session.UserID == "" {
		return nil, errors.New("token has no subject")
	}
	return session, nil
}

func claimString(claims jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		if v, ok := claims[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// requireSession is the AuthCheck step shared by every gateway endpoint.
// A missing or invalid session terminates the request; it never falls back.
func requireSession(c *gin.Context) (*models.Session, bool) {
	session, err := SessionFromRequest(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return nil, false
	}
	return session, true
}

// ValidateSession validates the caller's session token
// @Summary Validate session
// @Description Validate the bearer token issued by the auth provider
// @Tags Authentication
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Success 200 {object} models.ValidateSessionResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/validate-session [post]
func ValidateSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := requireSession(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, models.ValidateSessionResponse{
			Message:      "Session validated",
			UserID:       session.UserID,
			Email:        session.Email,
			ThirdPartyID: session.ThirdPartyID,
		})
	}
}
