package controllers

import (
	"context"
	"time"

	"github.com/OrbitDeskHQ/OrbitDesk/internal/pkg/jobqueue"
	"github.com/gofiber/fiber/v2"
)

// HandleJobQueueStats reports queue depth and per-status job counts.
func HandleJobQueueStats(c *fiber.Ctx) error {
	queue := jobqueue.GetManager().GetQueue()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats, err := queue.GetJobStats(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "job_stats_failed"})
	}
	pending, err := queue.GetQueueSize(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "job_stats_failed"})
	}
	processing, err := queue.GetProcessingSize(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "job_stats_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"stats":           stats,
		"pending_size":    pending,
		"processing_size": processing,
	})
}

// HandleTriggerReconcileSweep runs one reconciliation sweep immediately
// instead of waiting for the next ticker interval.
func HandleTriggerReconcileSweep(c *fiber.Ctx) error {
	if err := jobqueue.GetManager().RunReconcileSweepOnce(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "reconcile_sweep_failed"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}
