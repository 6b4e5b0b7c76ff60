package server

import (
	"driftline/internal/models"

	"github.com/gofiber/fiber/v2"
)

type credentialRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup handles POST /api/auth/signup: create an account and open a session.
func (s *Server) Signup(c *fiber.Ctx) error {
	var req credentialRequest
	if err := c.BodyParser(&req); err != nil {
		return respondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Email == "" || req.Password == "" {
		return respondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Email and password are required"))
	}

	identity, err := s.auth.SignUp(c.Context(), req.Email, req.Password)
	if err != nil {
		return respondWithError(c, statusFor(err), err)
	}

	token, err := s.auth.Token(identity)
	if err != nil {
		return respondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token":    token,
		"identity": identity,
	})
}

// Signin handles POST /api/auth/signin.
func (s *Server) Signin(c *fiber.Ctx) error {
	var req credentialRequest
	if err := c.BodyParser(&req); err != nil {
		return respondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	identity, err := s.auth.SignIn(c.Context(), req.Email, req.Password)
	if err != nil {
		return respondWithError(c, statusFor(err), err)
	}

	token, err := s.auth.Token(identity)
	if err != nil {
		return respondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(fiber.Map{
		"token":    token,
		"identity": identity,
	})
}

// Signout handles POST /api/auth/signout. Sessions are stateless tokens, so
// there is nothing to revoke server-side; the endpoint exists so clients have
// a single place to end a session.
func (s *Server) Signout(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}
