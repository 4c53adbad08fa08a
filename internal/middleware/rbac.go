package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/csmht/signlab-api/internal/authz"
	"github.com/csmht/signlab-api/internal/utils"
)

// RequireRole ensures the authenticated user holds one of the allowed roles.
// The actual decision is delegated to the authz policy so route guards and
// service-level checks share one implementation.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actual := normalizeRoleValue(c.Locals("user_role"))
		if !authz.Authorize(roles, false, []string{actual}) {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

func normalizeRoleValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case fmt.Stringer:
		return strings.ToLower(strings.TrimSpace(v.String()))
	default:
		if value == nil {
			return ""
		}
		return strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", value)))
	}
}
