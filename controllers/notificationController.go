package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"fieldservice-backend/middlewares"
	"fieldservice-backend/models"
	"fieldservice-backend/notify"
	"fieldservice-backend/utils"
)

// SendSMS sends a templated text. Policy blocks answer 200 with status "blocked".
func (a *API) SendSMS(c *fiber.Ctx) error {
	var in notify.SMSRequest
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	repo, co, err := a.scope(c)
	if err != nil {
		return err
	}
	n := a.notifier(repo, co)
	if in.JobID != nil {
		job, err := assignedJob(c, repo, *in.JobID)
		if err != nil {
			return err
		}
		if in.PortalLink, err = a.portalLink(c, n, co, job); err != nil {
			return err
		}
	}
	out, err := n.SendSMS(c.UserContext(), in)
	return notification(c, out, err)
}

// NotifyJobStatus re-sends the current job status to the customer.
func (a *API) NotifyJobStatus(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	repo, co, err := a.scope(c)
	if err != nil {
		return err
	}
	job, err := assignedJob(c, repo, id)
	if err != nil {
		return err
	}
	n := a.notifier(repo, co)
	link, err := a.portalLink(c, n, co, job)
	if err != nil {
		return err
	}
	out, err := n.JobStatusEmail(c.UserContext(), job, link)
	return notification(c, out, err)
}

func (a *API) GetSMSTemplates(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"templates": notify.Templates()})
}

func (a *API) GetSMSLogs(c *fiber.Ctx) error {
	repo, err := tenant(c)
	if err != nil {
		return err
	}
	logs, err := repo.SMSLogs(c.UserContext(), logLimit(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"logs": logs, "message": "success"})
}

func (a *API) GetEmailLogs(c *fiber.Ctx) error {
	repo, err := tenant(c)
	if err != nil {
		return err
	}
	logs, err := repo.EmailLogs(c.UserContext(), logLimit(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"logs": logs, "message": "success"})
}

const maxLogRows = 500

func logLimit(c *fiber.Ctx) int {
	if n := utils.QueryInt(c.Query("limit"), 100, maxLogRows); n > 0 {
		return n
	}
	return maxLogRows
}

// GetUsage reports this month's SMS count against the plan limit.
func (a *API) GetUsage(c *fiber.Ctx) error {
	repo, co, err := a.scope(c)
	if err != nil {
		return err
	}
	now := a.now().In(co.Location())
	since := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	sent, err := repo.CountSMSSent(c.UserContext(), since)
	if err != nil {
		return err
	}
	sub, err := a.Platform.Subscription(c.UserContext(), co.Id)
	if err != nil {
		return err
	}
	plan := sub.Plan
	if sub.Status == models.SubscriptionCanceled {
		plan = models.PlanFree
	}
	out := fiber.Map{"metric": models.MetricSMSMonthly, "used": sent, "plan": plan}
	limit, ok, err := a.Platform.MonthlyLimit(c.UserContext(), co.Id, plan, models.MetricSMSMonthly)
	if err != nil {
		return err
	}
	if ok {
		out["limit"] = limit
	}
	return c.JSON(out)
}
