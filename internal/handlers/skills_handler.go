package handlers

import (
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/resume-matcher/internal/matching"
)

// HandleSkills handles GET /skills, the vocabulary profiles are built from.
func HandleSkills(c *fiber.Ctx) error {
	names := matching.DefaultVocabulary.Names()
	return c.JSON(fiber.Map{
		"skills": names,
		"total":  len(names),
	})
}
