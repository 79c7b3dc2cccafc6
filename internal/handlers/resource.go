package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/neogan74/catalog/internal/catalog"
	"github.com/neogan74/catalog/internal/middleware"
)

// ResourceHandler serves the resource catalog.
type ResourceHandler struct {
	store *catalog.Store
}

func NewResourceHandler(store *catalog.Store) *ResourceHandler {
	return &ResourceHandler{store: store}
}

func (h *ResourceHandler) List(c *fiber.Ctx) error {
	return middleware.Success(c, fiber.StatusOK, "Resources retrieved", h.store.List(c.UserContext()))
}

func (h *ResourceHandler) Get(c *fiber.Ctx) error {
	r, err := h.store.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return resourceError(c, err)
	}
	return middleware.Success(c, fiber.StatusOK, "Resource retrieved", r)
}

func (h *ResourceHandler) Create(c *fiber.Ctx) error {
	var in catalog.Input
	if err := c.BodyParser(&in); err != nil {
		return middleware.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	createdBy := ""
	if id := middleware.GetIdentity(c); id != nil {
		createdBy = id.ID
	}

	r, err := h.store.Create(c.UserContext(), in, createdBy)
	if err != nil {
		return resourceError(c, err)
	}
	return middleware.Success(c, fiber.StatusCreated, "Resource created", r)
}

func (h *ResourceHandler) Update(c *fiber.Ctx) error {
	var in catalog.Input
	if err := c.BodyParser(&in); err != nil {
		return middleware.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	r, err := h.store.Update(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return resourceError(c, err)
	}
	return middleware.Success(c, fiber.StatusOK, "Resource updated", r)
}

func (h *ResourceHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.store.Delete(c.UserContext(), id); err != nil {
		return resourceError(c, err)
	}
	return middleware.Success(c, fiber.StatusOK, "Resource deleted", fiber.Map{"id": id})
}

func resourceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return middleware.Fail(c, fiber.StatusNotFound, "Resource not found")
	case errors.Is(err, catalog.ErrInvalid):
		return middleware.Fail(c, fiber.StatusBadRequest, "Resource name is required")
	default:
		return err
	}
}
