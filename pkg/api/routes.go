package api

import (
	"context"
	"encoding/json"

	"github.com/beamtime/hyperion/pkg/hyperion"
	"github.com/beamtime/hyperion/pkg/runner"
	"github.com/gofiber/fiber/v3"
	"github.com/samber/do/v2"
)

// Routes wires the Hyperion control endpoints. The shutdown callback is
// invoked after the run engine stops accepting work; pass nil when the
// process should keep running (tests).
func Routes(shutdown func()) Router {
	return func(ctx context.Context, app *fiber.App) {
		r := do.MustInvoke[*runner.Runner](hyperion.GetInjector(ctx))

		app.Put("/:plan/start", handleStart(r))
		app.Put("/stop", handleStop(r))
		app.Get("/status", handleStatus(r))
		app.Put("/shutdown", handleShutdown(r, shutdown))
	}
}

func handleStart(r *runner.Runner) fiber.Handler {
	return func(c fiber.Ctx) error {
		plan := c.Params("plan")

		if !json.Valid(c.Body()) {
			return c.Status(fiber.StatusBadRequest).JSON(runner.StatusAndMessage{
				Status:  runner.StatusFailed,
				Message: "request body is not valid JSON",
			})
		}

		if err := r.Start(plan, c.Body()); err != nil {
			return c.JSON(runner.StatusAndMessage{
				Status:  runner.StatusFailed,
				Message: err.Error(),
			})
		}

		return c.JSON(runner.StatusAndMessage{
			Status:  runner.StatusSuccess,
			Message: plan,
		})
	}
}

func handleStop(r *runner.Runner) fiber.Handler {
	return func(c fiber.Ctx) error {
		r.Stop()
		return c.JSON(r.Status())
	}
}

func handleStatus(r *runner.Runner) fiber.Handler {
	return func(c fiber.Ctx) error {
		return c.JSON(r.Status())
	}
}

func handleShutdown(r *runner.Runner, shutdown func()) fiber.Handler {
	return func(c fiber.Ctx) error {
		r.Shutdown()

		if shutdown != nil {
			go shutdown()
		}

		return c.JSON(r.Status())
	}
}
