package middleware

import (
	"fmt"
	"strings"

	"calendar-booking/constants"
	"calendar-booking/types"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// ServiceAuth validates HMAC-signed service tokens on administrative routes.
type ServiceAuth struct {
	secret []byte
}

func NewServiceAuth(secret string) *ServiceAuth {
	return &ServiceAuth{secret: []byte(secret)}
}

// RequirePermissions creates a middleware that admits only tokens carrying
// at least one of the given permissions.
func (sa *ServiceAuth) RequirePermissions(permissions ...string) fiber.Handler {
	return sa.isAuthenticated(permissions)
}

// RequireAuthentication only requires a valid token without specific permissions
func (sa *ServiceAuth) RequireAuthentication() fiber.Handler {
	return sa.isAuthenticated([]string{constants.PermAny})
}

func (sa *ServiceAuth) verifyToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return sa.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse service token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid service token")
	}
	return claims, nil
}

func (sa *ServiceAuth) hasPermission(tokenString string, requiredPermissions []string) (jwt.MapClaims, bool) {
	claims, err := sa.verifyToken(tokenString)
	if err != nil {
		return nil, false
	}

	for _, requiredPerm := range requiredPermissions {
		if requiredPerm == constants.PermAny {
			return claims, true
		}
	}

	tokenPermissions, ok := claims["permissions"].([]interface{})
	if !ok {
		return claims, false
	}

	permissionSet := make(map[string]bool)
	for _, p := range tokenPermissions {
		if perm, ok := p.(string); ok {
			permissionSet[perm] = true
		}
	}

	for _, requiredPerm := range requiredPermissions {
		if permissionSet[requiredPerm] {
			return claims, true
		}
	}
	return claims, false
}

func (sa *ServiceAuth) isAuthenticated(requiredPermissions []string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if len(sa.secret) == 0 {
			// No secret configured means auth is disabled, typically in
			// local development.
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
				Status:  fiber.StatusUnauthorized,
				Message: "Authorization token missing",
			})
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
				Status:  fiber.StatusUnauthorized,
				Message: "Invalid authorization header format",
			})
		}

		claims, hasAccess := sa.hasPermission(tokenParts[1], requiredPermissions)
		if !hasAccess {
			return c.Status(fiber.StatusForbidden).JSON(types.ApiResponse{
				Status:  fiber.StatusForbidden,
				Message: "Insufficient permissions",
			})
		}

		c.Locals("service", claims)
		return c.Next()
	}
}
