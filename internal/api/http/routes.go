package httpapi

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/sunshine-wear/internal/companion"
	"github.com/i474232898/sunshine-wear/internal/store"
	"github.com/i474232898/sunshine-wear/internal/transport"
	"github.com/i474232898/sunshine-wear/internal/weather"
)

var validate = validator.New()

// ForecastReader serves stored forecasts.
type ForecastReader interface {
	Today(loc weather.Location) (weather.DayForecast, error)
	GetLatest(loc weather.Location) (weather.DayForecast, error)
}

// Pusher sends today's summary to the wearable on demand.
type Pusher interface {
	PushToday(ctx context.Context) (weather.SummaryRecord, error)
}

// Deps are the services behind the companion API.
type Deps struct {
	Forecasts ForecastReader
	Pusher    Pusher
	Nodes     transport.NodeLister
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	v1 := app.Group("/api/v1")

	v1.Get("/weather/today", func(c *fiber.Ctx) error {
		locReq, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return forecastResponse(c, deps.Forecasts.Today, locReq.toLocation())
	})

	v1.Get("/weather/current", func(c *fiber.Ctx) error {
		locReq, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return forecastResponse(c, deps.Forecasts.GetLatest, locReq.toLocation())
	})

	v1.Get("/nodes", func(c *fiber.Ctx) error {
		nodes, err := deps.Nodes.ConnectedNodes(c.UserContext())
		if err != nil {
			if errors.Is(err, transport.ErrNotConnected) {
				return fiber.NewError(fiber.StatusServiceUnavailable, "wearable transport not connected")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to list nodes")
		}
		if nodes == nil {
			nodes = []transport.Node{}
		}
		return c.JSON(fiber.Map{"nodes": nodes})
	})

	v1.Post("/weather/push", func(c *fiber.Ctx) error {
		rec, err := deps.Pusher.PushToday(c.UserContext())
		if err != nil {
			switch {
			case errors.Is(err, companion.ErrNoData):
				return fiber.NewError(fiber.StatusNotFound, "no weather data for today")
			case errors.Is(err, transport.ErrNotConnected):
				return fiber.NewError(fiber.StatusServiceUnavailable, "wearable transport not connected")
			default:
				return fiber.NewError(fiber.StatusInternalServerError, "failed to push weather data")
			}
		}
		return c.Status(fiber.StatusAccepted).JSON(rec)
	})
}

func forecastResponse(c *fiber.Ctx, get func(weather.Location) (weather.DayForecast, error), loc weather.Location) error {
	day, err := get(loc)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "no weather data for requested location")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
	}
	return c.JSON(day)
}

// locationQuery holds query parameters for identifying a location.
type locationQuery struct {
	City    string `validate:"required"`
	Country string `validate:"required"`
}

func (l locationQuery) toLocation() weather.Location {
	return weather.Location{
		City:    l.City,
		Country: l.Country,
	}
}

func parseLocationQuery(c *fiber.Ctx) (locationQuery, error) {
	var q locationQuery

	q.City = c.Query("city")
	q.Country = c.Query("country")

	if err := validate.Struct(q); err != nil {
		return q, err
	}

	return q, nil
}
