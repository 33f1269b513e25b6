package httpapi

import (
	"context"
	"errors"
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/terraclime/internal/climate"
	"github.com/i474232898/terraclime/internal/earthdata"
)

var validate = validator.New()

// Analyzer is the single operation exposed over HTTP.
type Analyzer interface {
	Analyze(ctx context.Context, req climate.Request) (climate.Report, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service Analyzer) {
	v1 := app.Group("/api/v1")

	v1.Post("/analyze", func(c *fiber.Ctx) error {
		var req analyzeRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		report, err := service.Analyze(c.UserContext(), req.toRequest())
		if err != nil {
			switch {
			case errors.Is(err, climate.ErrInvalidQuery):
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			case errors.Is(err, earthdata.ErrCredentialsNotFound):
				return fiber.NewError(fiber.StatusServiceUnavailable, "archive credentials are not configured")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to analyze climate data")
		}

		return c.JSON(roundReport(report))
	})

	v1.Get("/variables", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"variables": climate.Variables(),
		})
	})
}

// analyzeRequest holds the body of the analyze endpoint.
type analyzeRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Month     int      `json:"month" validate:"required,gte=1,lte=12"`
	Day       int      `json:"day" validate:"required,gte=1,lte=31"`
	Variables []string `json:"variables" validate:"required,min=1,dive,required"`
}

func (r analyzeRequest) toRequest() climate.Request {
	return climate.Request{
		Latitude:  *r.Latitude,
		Longitude: *r.Longitude,
		Month:     r.Month,
		Day:       r.Day,
		Variables: r.Variables,
	}
}

// roundReport rounds statistics for display; probabilities are left as computed.
func roundReport(r climate.Report) climate.Report {
	for i := range r.Results {
		r.Results[i].Mean = round2(r.Results[i].Mean)
		r.Results[i].StdDev = round2(r.Results[i].StdDev)
	}
	return r
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
