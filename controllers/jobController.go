package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"fieldservice-backend/logger"
	"fieldservice-backend/middlewares"
	"fieldservice-backend/models"
	"fieldservice-backend/notify"
	"fieldservice-backend/repository"
	"fieldservice-backend/services"
)

type AssignInput struct {
	ProfileID string `json:"profile_id" validate:"required,uuid"`
	Notify    *bool  `json:"notify"`
}

func (a *API) CreateJob(c *fiber.Ctx) error {
	in, err := bindDocument(c)
	if err != nil {
		return err
	}
	if in.AssignedTo != nil {
		if err := a.checkTechnician(c, *in.AssignedTo); err != nil {
			return err
		}
	}
	docs, err := a.documents(c)
	if err != nil {
		return err
	}
	job, err := docs.CreateJob(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(job)
}

// checkTechnician makes sure a profile id names an active member of the caller's company.
func (a *API) checkTechnician(c *fiber.Ctx, profileID string) error {
	companyID, _ := c.Locals("companyID").(string)
	p, err := a.Platform.Profile(c.UserContext(), profileID)
	if err == nil && p.Active && p.CompanyID == companyID {
		return nil
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return fiber.NewError(fiber.StatusUnprocessableEntity, "assigned_to is not an active team member")
}

// GetJobs lists jobs. Technicians only see the jobs assigned to them.
func (a *API) GetJobs(c *fiber.Ctx) error {
	repo, err := tenant(c)
	if err != nil {
		return err
	}
	f := listFilter(c)
	if c.Locals("role") == models.RoleTechnician {
		f.AssignedTo = userID(c)
	}
	jobs, err := repo.Jobs(c.UserContext(), f)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"jobs": jobs, "message": "success"})
}

func (a *API) GetJob(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	repo, err := tenant(c)
	if err != nil {
		return err
	}
	job, err := assignedJob(c, repo, id)
	if err != nil {
		return err
	}
	return c.JSON(job)
}

// visibleTo hides unassigned jobs from technicians.
func visibleTo(c *fiber.Ctx, job *models.Job) bool {
	if c.Locals("role") != models.RoleTechnician {
		return true
	}
	return job.AssignedTo != nil && *job.AssignedTo == userID(c)
}

// assignedJob loads a job the caller may act on. Other technicians' jobs are not found.
func assignedJob(c *fiber.Ctx, repo *repository.Tenant, id uint) (*models.Job, error) {
	job, err := repo.Job(c.UserContext(), id)
	if err != nil {
		return nil, err
	}
	if !visibleTo(c, job) {
		return nil, repository.ErrNotFound
	}
	return job, nil
}

// guardJob runs the assignedJob check for technicians only.
func guardJob(c *fiber.Ctx, repo *repository.Tenant, id uint) error {
	if c.Locals("role") != models.RoleTechnician {
		return nil
	}
	_, err := assignedJob(c, repo, id)
	return err
}

func (a *API) UpdateJob(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	in, err := bindDocument(c)
	if err != nil {
		return err
	}
	if in.AssignedTo != nil {
		if err := a.checkTechnician(c, *in.AssignedTo); err != nil {
			return err
		}
	}
	docs, err := a.documents(c)
	if err != nil {
		return err
	}
	job, err := docs.UpdateJob(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(job)
}

// AssignJob assigns a technician and, unless notify is false, emails them.
func (a *API) AssignJob(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var in AssignInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	repo, co, err := a.scope(c)
	if err != nil {
		return err
	}
	tech, err := a.Platform.Profile(c.UserContext(), in.ProfileID)
	if errors.Is(err, repository.ErrNotFound) {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "profile_id is not a team member")
	}
	if err != nil {
		return err
	}

	job, err := services.NewDocuments(repo, co).AssignJob(c.UserContext(), id, tech)
	if err != nil {
		return err
	}
	out := fiber.Map{"job": job}
	if in.Notify == nil || *in.Notify {
		sent, err := softNotification(a.notifier(repo, co).AssignmentEmail(c.UserContext(), job, tech))
		if err != nil {
			return err
		}
		out["notification"] = sent
	}
	return c.JSON(out)
}

// SetJobStatus changes the status; with notify it emails the customer a portal link.
func (a *API) SetJobStatus(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var in StatusInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	repo, co, err := a.scope(c)
	if err != nil {
		return err
	}
	if err := guardJob(c, repo, id); err != nil {
		return err
	}
	job, prev, err := services.NewDocuments(repo, co).SetJobStatus(c.UserContext(), id, in.Status)
	if err != nil {
		return err
	}
	out := fiber.Map{"job": job, "previous_status": prev}
	if in.Notify && prev != job.Status {
		n := a.notifier(repo, co)
		link, err := a.portalLink(c, n, co, job)
		if err != nil {
			return err
		}
		sent, err := softNotification(n.JobStatusEmail(c.UserContext(), job, link))
		if err != nil {
			return err
		}
		out["notification"] = sent
	}
	return c.JSON(out)
}

// portalLink signs a magic link when the plan includes the portal. Otherwise it is empty.
func (a *API) portalLink(c *fiber.Ctx, n *notify.Notifier, co *models.Company, job *models.Job) (string, error) {
	if a.Portal == nil {
		return "", nil
	}
	ok, err := n.Entitled(c.UserContext(), models.FeaturePortal)
	if err != nil || !ok {
		return "", err
	}
	link, err := a.Portal.Link(schema(c), co.Id, job.CustomerID, job.ID)
	if err != nil {
		l := logger.WithTenant(schema(c), userID(c))
		l.Warn().Err(err).Uint("job_id", job.ID).Msg("portal link signing failed")
		return "", nil
	}
	return link, nil
}

func (a *API) ConvertJobToInvoice(c *fiber.Ctx) error {
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
	inv, err := docs.JobToInvoice(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(inv)
}

func (a *API) StartTimeEntry(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var in services.TimeEntryInput
	if len(c.Body()) > 0 {
		if err := middlewares.BindAndValidate(c, &in); err != nil {
			return err
		}
	}
	repo, err := tenant(c)
	if err != nil {
		return err
	}
	if err := guardJob(c, repo, id); err != nil {
		return err
	}
	entry, err := services.NewTimeTracking(repo).Start(c.UserContext(), id, userID(c), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

func (a *API) StopTimeEntry(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	entryID, err := idParam(c, "entryId")
	if err != nil {
		return err
	}
	repo, err := tenant(c)
	if err != nil {
		return err
	}
	if err := guardJob(c, repo, id); err != nil {
		return err
	}
	entry, err := services.NewTimeTracking(repo).Stop(c.UserContext(), id, entryID)
	if err != nil {
		return err
	}
	return c.JSON(entry)
}

func (a *API) GetTimeEntries(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	repo, err := tenant(c)
	if err != nil {
		return err
	}
	if err := guardJob(c, repo, id); err != nil {
		return err
	}
	summary, err := services.NewTimeTracking(repo).Summary(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(summary)
}
