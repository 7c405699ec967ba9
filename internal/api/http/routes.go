package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/celestiatrack/astro-event-aggregation/internal/astro"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app. The location
// is fixed per deployment and applies to refresh runs.
func RegisterRoutes(app *fiber.App, service *astro.Service, loc astro.Location) {
	v1 := app.Group("/api/v1")

	v1.Get("/events", func(c *fiber.Ctx) error {
		var req eventsQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		events, total, err := service.List(c.Context(), req.toFilter())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to list events")
		}

		totalPages := 0
		if total > 0 {
			totalPages = (total + req.PerPage - 1) / req.PerPage
		}

		return c.JSON(fiber.Map{
			"events":     events,
			"page":       req.Page,
			"perPage":    req.PerPage,
			"total":      total,
			"totalPages": totalPages,
		})
	})

	v1.Post("/events/refresh", func(c *fiber.Ctx) error {
		var req rangeQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		summary, err := service.Refresh(c.Context(), loc, req.From, req.To)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to store events")
		}

		return c.JSON(summary)
	})
}

// eventsQuery holds query parameters for the listing endpoint.
type eventsQuery struct {
	rangeQuery
	Source   string `validate:"omitempty,oneof=astronomy_api open_meteo ams_meteors"`
	Category string `validate:"omitempty,oneof=celestial_body twilight meteor_shower fireball"`
	Page     int    `validate:"gte=1"`
	PerPage  int    `validate:"gte=1,lte=200"`
}

func (q *eventsQuery) bind(c *fiber.Ctx) error {
	if err := q.rangeQuery.bind(c); err != nil {
		return err
	}

	q.Source = c.Query("source")
	q.Category = c.Query("category")
	q.Page = c.QueryInt("page", 1)
	q.PerPage = c.QueryInt("per_page", 50)
	return nil
}

func (q eventsQuery) toFilter() astro.Filter {
	return astro.Filter{
		From:     q.From,
		To:       q.To,
		Source:   astro.Source(q.Source),
		Category: astro.Category(q.Category),
		Limit:    q.PerPage,
		Offset:   (q.Page - 1) * q.PerPage,
	}
}

// rangeQuery holds the optional from/to bounds shared by both endpoints.
type rangeQuery struct {
	From time.Time
	To   time.Time
}

func (q *rangeQuery) bind(c *fiber.Ctx) error {
	if fromStr := c.Query("from"); fromStr != "" {
		from, err := parseTime(fromStr)
		if err != nil {
			return err
		}
		q.From = from
	}
	if toStr := c.Query("to"); toStr != "" {
		to, err := parseTime(toStr)
		if err != nil {
			return err
		}
		q.To = to
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return errors.New("to must not be before from")
	}
	return nil
}

// parseTime tries RFC3339, a bare date, or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	if ts, err := time.Parse("2006-01-02", s); err == nil {
		return ts.UTC(), nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339, YYYY-MM-DD, or unix seconds")
}
