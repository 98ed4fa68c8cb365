package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const credentialKey = "bearer-credential"

// Bearer extracts the Authorization credential the intake service forwards to
// the loan-origination backend. The credential is not verified here (issuing
// and verifying it is the backend's job), but tokens that are structurally
// JWT are pre-flighted so an expired or garbled credential gets a distinct
// 401 before any network call.
func Bearer() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"code":  "unauthorized",
					"error": "missing credential",
				})
			}
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"code":  "unauthorized",
					"error": "invalid authorization format",
				})
			}
			token = strings.TrimSpace(token)

			if strings.Count(token, ".") == 2 {
				if err := preflightJWT(token); err != nil {
					return c.JSON(http.StatusUnauthorized, map[string]string{
						"code":  "unauthorized",
						"error": "credential missing/invalid: " + err.Error(),
					})
				}
			}

			c.Set(credentialKey, token)
			return next(c)
		}
	}
}

// preflightJWT parses without verifying the signature and checks only the
// expiry claim.
func preflightJWT(token string) error {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return err
	}
	if exp != nil && exp.Before(time.Now()) {
		return jwt.ErrTokenExpired
	}
	return nil
}

// Credential returns the bearer token stored by the Bearer middleware.
func Credential(c echo.Context) string {
	if v, ok := c.Get(credentialKey).(string); ok {
		return v
	}
	return ""
}
