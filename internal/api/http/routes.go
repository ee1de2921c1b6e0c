package httpapi

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/city-weather/internal/weather"
)

//go:embed index.html
var indexPage []byte

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service) {
	app.Get("/", func(c *fiber.Ctx) error {
		c.Type("html", "utf-8")
		return c.Send(indexPage)
	})

	app.Get("/update", func(c *fiber.Ctx) error {
		res, err := service.Refresh(c.UserContext())
		c.Set("X-Batch-ID", res.BatchID)
		if err != nil {
			switch {
			case errors.Is(err, weather.ErrSourceLoad):
				return fiber.NewError(fiber.StatusInternalServerError, "failed to load points")
			case errors.Is(err, weather.ErrRefreshTimedOut):
				return fiber.NewError(fiber.StatusGatewayTimeout, "weather refresh timed out")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to refresh weather data")
		}

		return c.JSON(res.Snapshot)
	})

	app.Get("/weather", func(c *fiber.Ctx) error {
		return c.JSON(service.Current())
	})

	app.Delete("/remove_city/:label", func(c *fiber.Ctx) error {
		req, err := parseRemoveRequest(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := service.Remove(req.Label); err != nil {
			if errors.Is(err, weather.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "City not found")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to remove city")
		}

		return c.JSON(fiber.Map{
			"status":  "success",
			"message": fmt.Sprintf("City %s removed successfully.", req.Label),
		})
	})
}

// removeRequest holds the path parameter identifying a reading.
type removeRequest struct {
	Label string `validate:"required"`
}

func parseRemoveRequest(c *fiber.Ctx) (removeRequest, error) {
	var r removeRequest

	raw := c.Params("label")
	label, err := url.PathUnescape(raw)
	if err != nil {
		return r, fmt.Errorf("invalid label %q", raw)
	}
	r.Label = strings.TrimSpace(label)

	if err := validate.Struct(r); err != nil {
		return r, err
	}
	return r, nil
}
