package http

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Muestras-api/internal/application/auth"
	"github.com/jhoicas/Muestras-api/internal/application/dto"
	"github.com/jhoicas/Muestras-api/internal/domain/entity"
	"github.com/jhoicas/Muestras-api/pkg/jwt"
)

// Locals keys para UserID, Role y Scope en Fiber.
const (
	LocalUserID = "user_id"
	LocalRole   = "role"
	LocalScope  = "scope"
)

// scopeResolver contrato mínimo para calcular el alcance del usuario autenticado.
type scopeResolver interface {
	Resolve(ctx context.Context, p auth.Principal) (*entity.Scope, error)
}

// AuthMiddleware valida el Bearer Token JWT y extrae UserID y Role a c.Locals.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido"})
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"})
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"})
		}
		userID, role, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
		}
		c.Locals(LocalUserID, userID)
		c.Locals(LocalRole, entity.Role(role))
		return c.Next()
	}
}

// RequireRole permite el paso solo a los roles indicados. Usar después de AuthMiddleware.
func RequireRole(roles ...entity.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := GetRole(c)
		if role == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_ROLE", Message: "el token no contiene rol"})
		}
		for _, r := range roles {
			if r == role {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "el rol '" + string(role) + "' no tiene acceso a este recurso"})
	}
}

// RequireCapability exige que el rol del token tenga acceso al módulo según la tabla de capacidades.
func RequireCapability(module entity.Module) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := GetRole(c)
		if role == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_ROLE", Message: "el token no contiene rol"})
		}
		if !role.Can(module) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "sin permiso para el módulo '" + string(module) + "'"})
		}
		return c.Next()
	}
}

// ResolveScope carga el usuario del token y deja su alcance en c.Locals.
// Un usuario desactivado después de emitido el token queda rechazado aquí.
func ResolveScope(resolver scopeResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scope, err := resolver.Resolve(c.UserContext(), auth.Principal{UserID: GetUserID(c), Role: GetRole(c)})
		if err != nil {
			return respondError(c, err)
		}
		c.Locals(LocalScope, scope)
		return c.Next()
	}
}

// GetUserID devuelve el UserID del contexto (después del middleware de auth).
func GetUserID(c *fiber.Ctx) int64 {
	id, _ := c.Locals(LocalUserID).(int64)
	return id
}

// GetRole devuelve el rol del token; vacío si no hay.
func GetRole(c *fiber.Ctx) entity.Role {
	r, _ := c.Locals(LocalRole).(entity.Role)
	return r
}

// GetScope devuelve el alcance resuelto. Sin ResolveScope previo no se ve nada.
func GetScope(c *fiber.Ctx) *entity.Scope {
	if s, ok := c.Locals(LocalScope).(*entity.Scope); ok {
		return s
	}
	return entity.CountriesOnly()
}
