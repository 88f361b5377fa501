package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/meinhoongagan/hospital-appointments/models"
	"github.com/meinhoongagan/hospital-appointments/services"
	"github.com/meinhoongagan/hospital-appointments/utils"
)

const callerKey = "caller"

// Protected verifies the bearer token and stores the caller's identity in
// c.Locals for the handlers behind it.
func Protected(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:     []byte(secret),
		ErrorHandler:   jwtError,
		SuccessHandler: func(c *fiber.Ctx) error {
			token, ok := c.Locals("user").(*jwt.Token)
			if !ok {
				return unauthorized(c, "Invalid token")
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return unauthorized(c, "Invalid token claims")
			}
			if typ, _ := claims["typ"].(string); typ == "refresh" {
				return unauthorized(c, "Refresh token cannot be used here")
			}

			caller, err := CallerFromClaims(claims)
			if err != nil {
				return unauthorized(c, err.Error())
			}
			c.Locals(callerKey, caller)
			return c.Next()
		},
	})
}

// RequireRole rejects callers whose role is not in roles.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, ok := CallerFrom(c)
		if !ok {
			return unauthorized(c, "No authentication token")
		}
		for _, r := range roles {
			if caller.Role == r {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(utils.ErrorResponse{
			Message: "You don't have the required role to perform this action",
			Error:   "forbidden",
		})
	}
}

// CallerFrom returns the identity stored by Protected.
func CallerFrom(c *fiber.Ctx) (services.Caller, bool) {
	caller, ok := c.Locals(callerKey).(services.Caller)
	return caller, ok
}

// CallerFromClaims reads the id, role and ref claims issued at login.
func CallerFromClaims(claims jwt.MapClaims) (services.Caller, error) {
	userID, err := uintClaim(claims, "id")
	if err != nil {
		return services.Caller{}, err
	}
	roleName, _ := claims["role"].(string)
	role, ok := models.ParseRole(roleName)
	if !ok {
		return services.Caller{}, fmt.Errorf("invalid role in token")
	}
	ref, err := uintClaim(claims, "ref")
	if err != nil {
		return services.Caller{}, err
	}
	return services.Caller{UserID: userID, Role: role, Ref: ref}, nil
}

func uintClaim(claims jwt.MapClaims, name string) (uint, error) {
	// encoding/json decodes every number into float64
	v, ok := claims[name].(float64)
	if !ok || v < 0 {
		return 0, fmt.Errorf("invalid %s in token", name)
	}
	return uint(v), nil
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(utils.ErrorResponse{
		Message: msg,
		Error:   "unauthorized",
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	return unauthorized(c, "Invalid or expired token")
}
