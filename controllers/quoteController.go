package controllers

import (
	"github.com/gofiber/fiber/v2"

	"fieldservice-backend/billing"
	"fieldservice-backend/middlewares"
	"fieldservice-backend/models"
	"fieldservice-backend/services"
)

func (a *API) CreateQuote(c *fiber.Ctx) error {
	in, err := bindDocument(c)
	if err != nil {
		return err
	}
	docs, err := a.documents(c)
	if err != nil {
		return err
	}
	q, err := docs.CreateQuote(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(q)
}

func (a *API) GetQuotes(c *fiber.Ctx) error {
	repo, err := tenant(c)
	if err != nil {
		return err
	}
	quotes, err := repo.Quotes(c.UserContext(), listFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"quotes": quotes, "message": "success"})
}

func (a *API) GetQuote(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	repo, err := tenant(c)
	if err != nil {
		return err
	}
	q, err := repo.Quote(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(q)
}

func (a *API) UpdateQuote(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	in, err := bindDocument(c)
	if err != nil {
		return err
	}
	docs, err := a.documents(c)
	if err != nil {
		return err
	}
	q, err := docs.UpdateQuote(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(q)
}

func (a *API) SetQuoteStatus(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var in StatusInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	docs, err := a.documents(c)
	if err != nil {
		return err
	}
	q, err := docs.SetQuoteStatus(c.UserContext(), id, in.Status)
	if err != nil {
		return err
	}
	return c.JSON(q)
}

func bindConvert(c *fiber.Ctx) (services.ConvertInput, error) {
	var in services.ConvertInput
	if len(c.Body()) == 0 {
		return in, nil
	}
	err := middlewares.BindAndValidate(c, &in)
	return in, err
}

// ConvertQuoteToJob creates a job from all or some of the quote's items.
func (a *API) ConvertQuoteToJob(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	in, err := bindConvert(c)
	if err != nil {
		return err
	}
	docs, err := a.documents(c)
	if err != nil {
		return err
	}
	job, err := docs.QuoteToJob(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(job)
}

func (a *API) ConvertQuoteToInvoice(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	in, err := bindConvert(c)
	if err != nil {
		return err
	}
	docs, err := a.documents(c)
	if err != nil {
		return err
	}
	inv, err := docs.QuoteToInvoice(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(inv)
}

// AddPhoto attaches a stored image reference to a quote or job.
func (a *API) AddPhoto(kind string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "id")
		if err != nil {
			return err
		}
		var in PhotoInput
		if err := middlewares.BindAndValidate(c, &in); err != nil {
			return err
		}
		repo, err := tenant(c)
		if err != nil {
			return err
		}
		photo := models.Photo{StoragePath: in.StoragePath, Caption: in.Caption}
		switch kind {
		case billing.KindQuote:
			if _, err := repo.Quote(c.UserContext(), id); err != nil {
				return err
			}
			photo.QuoteID = &id
		default:
			if _, err := assignedJob(c, repo, id); err != nil {
				return err
			}
			photo.JobID = &id
		}
		photos := []models.Photo{photo}
		if err := repo.CreatePhotos(c.UserContext(), photos); err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(photos[0])
	}
}
