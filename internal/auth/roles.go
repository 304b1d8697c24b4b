package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/atlasbank/servicedesk/internal/domain"
	apperrors "github.com/atlasbank/servicedesk/pkg/util/errorutil"
)

// RequireRole ensures the principal holds one of the allowed roles. With no
// arguments it only requires authentication.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.User.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireTicketWorker admits roles allowed to claim and progress tickets.
func RequireTicketWorker() fiber.Handler {
	return RequireRole(domain.RoleTechnician, domain.RoleManager, domain.RoleAdmin)
}
