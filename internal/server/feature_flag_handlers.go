package server

import (
	"littletimes/internal/featureflags"

	"github.com/gofiber/fiber/v2"
)

// featureFlagsView is the admin view of the flag table.
type featureFlagsView struct {
	Raw       map[string]string `json:"raw"`
	Evaluated map[string]bool   `json:"evaluated"`
	Names     []string          `json:"names"`
}

func flagsView(m *featureflags.Manager, userID uint) featureFlagsView {
	if m == nil {
		return featureFlagsView{Raw: map[string]string{}, Evaluated: map[string]bool{}, Names: []string{}}
	}
	return featureFlagsView{Raw: m.Raw(), Evaluated: m.Snapshot(userID), Names: m.Names()}
}

// GetFeatureFlags handles GET /api/admin/feature-flags
// @Summary Feature flags
// @Description Lists the configured flag values (virtual account checkout, Google sign-in) and how they evaluate for the calling admin.
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} featureFlagsView
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(flagsView(s.featureFlags, currentUserID(c)))
}
