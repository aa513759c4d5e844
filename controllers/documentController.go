package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"fieldservice-backend/middlewares"
	"fieldservice-backend/models"
	"fieldservice-backend/notify"
	"fieldservice-backend/services"
)

type StatusInput struct {
	Status string `json:"status" validate:"required,max=20"`
	Notify bool   `json:"notify"`
}

type PhotoInput struct {
	StoragePath string `json:"storage_path" validate:"required,max=1000"`
	Caption     string `json:"caption" validate:"max=500"`
}

func (a *API) documents(c *fiber.Ctx) (*services.Documents, error) {
	repo, co, err := a.scope(c)
	if err != nil {
		return nil, err
	}
	return services.NewDocuments(repo, co), nil
}

// bindDocument parses a create/update body. Items are validated by the services layer rules.
func bindDocument(c *fiber.Ctx) (services.DocumentInput, error) {
	var in services.DocumentInput
	err := middlewares.BindAndValidate(c, &in)
	return in, err
}

func (a *API) ArchiveDocument(kind string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "id")
		if err != nil {
			return err
		}
		docs, err := a.documents(c)
		if err != nil {
			return err
		}
		if err := docs.Archive(c.UserContext(), kind, id); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "archived"})
	}
}

func (a *API) UnarchiveDocument(kind string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "id")
		if err != nil {
			return err
		}
		docs, err := a.documents(c)
		if err != nil {
			return err
		}
		if err := docs.Unarchive(c.UserContext(), kind, id); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "unarchived"})
	}
}

func (a *API) DeleteDocument(kind string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "id")
		if err != nil {
			return err
		}
		docs, err := a.documents(c)
		if err != nil {
			return err
		}
		if err := docs.Delete(c.UserContext(), kind, id); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// notification writes a notification outcome. Provider failures answer 502 without
// returning an error, so the request transaction still commits the failed log row.
func notification(c *fiber.Ctx, out notify.Outcome, err error) error {
	if errors.Is(err, notify.ErrProvider) {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"message": err.Error(),
			"status":  out.Status,
			"log_id":  out.LogID,
		})
	}
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// softNotification reports the outcome of a notification that rides along a
// successful change. Provider failures are logged and reported, never fatal.
func softNotification(out notify.Outcome, err error) (*notify.Outcome, error) {
	if err != nil && !errors.Is(err, notify.ErrProvider) && !errors.Is(err, notify.ErrNoRecipient) {
		return nil, err
	}
	if errors.Is(err, notify.ErrNoRecipient) {
		out = notify.Outcome{Status: models.LogSkipped, Reason: "no_recipient"}
	}
	return &out, nil
}
