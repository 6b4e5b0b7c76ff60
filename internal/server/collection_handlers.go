package server

import (
	"encoding/json"

	"driftline/internal/models"
	"driftline/internal/remote"

	"github.com/gofiber/fiber/v2"
)

// QueryCollection handles GET /api/collections/:collection. Without query
// parameters it returns the complete collection snapshot; with field/value it
// returns the documents matching the equality query.
func (s *Server) QueryCollection(c *fiber.Ctx) error {
	collection := c.Params("collection")

	field := c.Query("field")
	if field == "" {
		snap, err := s.store.Snapshot(c.Context(), collection)
		if err != nil {
			return respondWithError(c, statusFor(err), err)
		}
		return c.JSON(snap)
	}

	var value any
	if err := json.Unmarshal([]byte(c.Query("value")), &value); err != nil {
		return respondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("value must be JSON encoded"))
	}

	snap, err := s.store.Where(c.Context(), collection, field, value)
	if err != nil {
		return respondWithError(c, statusFor(err), err)
	}
	return c.JSON(snap)
}

// GetDocument handles GET /api/collections/:collection/:id.
func (s *Server) GetDocument(c *fiber.Ctx) error {
	collection := c.Params("collection")
	id := c.Params("id")

	doc, err := s.store.Get(c.Context(), collection, id)
	if err != nil {
		return respondWithError(c, statusFor(err), err)
	}
	if doc == nil {
		return respondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError(collection, id))
	}
	return c.JSON(doc)
}

// AddDocument handles POST /api/collections/:collection.
func (s *Server) AddDocument(c *fiber.Ctx) error {
	fields, err := parseFields(c)
	if err != nil {
		return respondWithError(c, fiber.StatusBadRequest, err)
	}

	id, err := s.store.Add(c.Context(), c.Params("collection"), fields)
	if err != nil {
		return respondWithError(c, statusFor(err), err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

// SetDocument handles PUT /api/collections/:collection/:id.
func (s *Server) SetDocument(c *fiber.Ctx) error {
	fields, err := parseFields(c)
	if err != nil {
		return respondWithError(c, fiber.StatusBadRequest, err)
	}

	if err := s.store.Set(c.Context(), c.Params("collection"), c.Params("id"), fields); err != nil {
		return respondWithError(c, statusFor(err), err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UpdateDocument handles PATCH /api/collections/:collection/:id.
func (s *Server) UpdateDocument(c *fiber.Ctx) error {
	fields, err := parseFields(c)
	if err != nil {
		return respondWithError(c, fiber.StatusBadRequest, err)
	}

	if err := s.store.Update(c.Context(), c.Params("collection"), c.Params("id"), fields); err != nil {
		return respondWithError(c, statusFor(err), err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteDocument handles DELETE /api/collections/:collection/:id.
func (s *Server) DeleteDocument(c *fiber.Ctx) error {
	if err := s.store.Delete(c.Context(), c.Params("collection"), c.Params("id")); err != nil {
		return respondWithError(c, statusFor(err), err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func parseFields(c *fiber.Ctx) (remote.Fields, error) {
	var fields remote.Fields
	if err := json.Unmarshal(c.Body(), &fields); err != nil {
		return nil, models.NewValidationError("Invalid request body")
	}
	return fields, nil
}
