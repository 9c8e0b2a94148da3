package httpapi

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/spaceweather/internal/store"
	"github.com/i474232898/spaceweather/internal/weather"
)

var validate = validator.New()

// Queue accepts refresh requests for the background worker.
type Queue interface {
	Submit(trigger weather.Trigger, query string) weather.Request
	State() weather.CycleStatus
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, queue Queue) {
	v1 := app.Group("/api/v1")

	v1.Get("/snapshot", func(c *fiber.Ctx) error {
		view, err := service.Latest()
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no refresh cycle has completed yet")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read snapshot")
		}

		return c.JSON(fiber.Map{
			"state":   queue.State(),
			"view":    view,
			"display": weather.Format(view),
		})
	})

	v1.Get("/snapshot/last", func(c *fiber.Ctx) error {
		snap, err := service.LastSnapshot()
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no valid snapshot yet")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read snapshot")
		}
		return c.JSON(snap)
	})

	v1.Post("/refresh", func(c *fiber.Ctx) error {
		req := queue.Submit(weather.TriggerManual, "")
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"generation": req.Generation,
			"requestId":  req.ID,
			"coalesced":  req.Coalesced,
		})
	})

	search := func(c *fiber.Ctx) error {
		q, err := parseSearch(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		req := queue.Submit(weather.TriggerSearch, q.City)
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"generation": req.Generation,
			"requestId":  req.ID,
			"city":       req.Query,
			"coalesced":  req.Coalesced,
		})
	}
	v1.Get("/search", search)
	v1.Post("/search", search)

	v1.Get("/aqi/category", func(c *fiber.Ctx) error {
		raw := c.Query("aqi")

		var aqi *int
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			aqi = &n
		}

		return c.JSON(fiber.Map{
			"aqi":      aqi,
			"category": weather.Categorize(aqi),
			"badAir":   weather.BadAir(aqi),
		})
	})

	v1.Get("/conditions", func(c *fiber.Ctx) error {
		coords, err := parseCoordinates(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		snap := service.Conditions(c.UserContext(), coords)
		return c.JSON(fiber.Map{
			"snapshot": snap,
			"display":  weather.Format(weather.View{Snapshot: &snap, UpdatedAt: snap.FetchedAt}),
		})
	})
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// searchRequest is accepted as a query string, a form or a JSON body.
type searchRequest struct {
	City string `json:"city" form:"city" validate:"required,max=128"`
}

func parseSearch(c *fiber.Ctx) (searchRequest, error) {
	var req searchRequest
	if c.Method() == fiber.MethodPost && len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return req, errors.New("invalid search body")
		}
	}
	if strings.TrimSpace(req.City) == "" {
		req.City = c.Query("city")
	}
	req.City = strings.TrimSpace(req.City)

	if err := validate.Struct(req); err != nil {
		return req, errors.New("city is required")
	}
	return req, nil
}

// coordinatesQuery holds the lat/lon query parameters of /conditions.
type coordinatesQuery struct {
	Lat *float64 `validate:"required,gte=-90,lte=90"`
	Lon *float64 `validate:"required,gte=-180,lte=180"`
}

func parseCoordinates(c *fiber.Ctx) (weather.Coordinates, error) {
	var q coordinatesQuery

	for _, p := range []struct {
		name string
		dst  **float64
	}{{"lat", &q.Lat}, {"lon", &q.Lon}} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return weather.Coordinates{}, errors.New("invalid " + p.name + "; use decimal degrees")
		}
		*p.dst = &v
	}

	if err := validate.Struct(q); err != nil {
		return weather.Coordinates{}, err
	}

	coords := weather.Coordinates{Lat: *q.Lat, Lon: *q.Lon}
	if !coords.Valid() {
		return weather.Coordinates{}, errors.New("coordinates out of range")
	}
	return coords, nil
}
