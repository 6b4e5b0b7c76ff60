package server

import (
	"strings"

	"driftline/internal/models"
	"driftline/internal/remote"

	"github.com/gofiber/fiber/v2"
)

var validCollections = map[string]struct{}{
	remote.CollectionUsers:    {},
	remote.CollectionPosts:    {},
	remote.CollectionLikes:    {},
	remote.CollectionComments: {},
	remote.CollectionStories:  {},
}

// ValidCollection rejects requests for collections the backend does not serve.
func (s *Server) ValidCollection(c *fiber.Ctx) error {
	if _, ok := validCollections[c.Params("collection")]; !ok {
		return respondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Collection", c.Params("collection")))
	}
	return c.Next()
}

// AuthRequired enforces a valid session token on mutating routes. The
// verified identity is stored in context locals.
func (s *Server) AuthRequired(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return respondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authorization header required"))
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return respondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid authorization header format"))
	}

	identity, err := s.auth.VerifyToken(parts[1])
	if err != nil {
		return respondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid or expired token"))
	}

	c.Locals("identity", identity)
	return c.Next()
}

// respondWithError writes the standardized error payload.
func respondWithError(c *fiber.Ctx, status int, err error) error {
	payload := fiber.Map{"error": err.Error()}
	if code := models.ErrorCode(err); code != "" {
		payload["code"] = code
	}
	return c.Status(status).JSON(payload)
}

// statusFor maps the application error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch models.ErrorCode(err) {
	case "NOT_FOUND":
		return fiber.StatusNotFound
	case "VALIDATION_ERROR", "NAME_TAKEN":
		return fiber.StatusBadRequest
	case "UNAUTHORIZED":
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}
