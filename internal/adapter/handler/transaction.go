package handler

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ibrahimkeyboad/swiftportal/internal/adapter/middleware"
	"github.com/ibrahimkeyboad/swiftportal/internal/core/domain"
	"github.com/ibrahimkeyboad/swiftportal/internal/core/workflow"
)

type TransactionHandler struct {
	Flow *workflow.Workflow
}

type rejectRequest struct {
	Notes string `json:"notes"`
}

// Create handles a customer's payment submission.
func (h *TransactionHandler) Create(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Missing session token"})
	}

	var req domain.NewTransactionInput
	if err := c.BodyParser(&req); err != nil {
		slog.Warn("Invalid transaction body", "error", err)
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	tx, err := h.Flow.Create(c.Context(), actor, req)
	if err != nil {
		return writeError(c, err)
	}

	slog.Info("✅ Transaction created", "id", tx.ID, "customer", actor.ID)
	return c.Status(http.StatusCreated).JSON(fiber.Map{"transaction": tx})
}

// Get returns a single transaction, if the caller may see it.
func (h *TransactionHandler) Get(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Missing session token"})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid transaction ID"})
	}

	tx, err := h.Flow.Get(c.Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"transaction": tx})
}

// List returns the caller's transactions. Customers see their own,
// employees browse the review queue by status.
func (h *TransactionHandler) List(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Missing session token"})
	}

	page := workflow.Page{
		Limit:  c.QueryInt("limit", 0),
		Offset: c.QueryInt("offset", 0),
	}

	var statusFilter *domain.Status
	if raw := c.Query("status"); raw != "" {
		status, valid := domain.ParseStatus(raw)
		if !valid {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Unknown status filter"})
		}
		statusFilter = &status
	}

	var (
		items []domain.Transaction
		total int
		err   error
	)
	if actor.Role == domain.RoleEmployee {
		status := domain.StatusPending
		if statusFilter != nil {
			status = *statusFilter
		}
		items, total, err = h.Flow.ListByStatus(c.Context(), actor, status, page)
	} else {
		items, total, err = h.Flow.ListMine(c.Context(), actor, workflow.ListFilter{Status: statusFilter}, page)
	}
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{"transactions": items, "total": total})
}

// Verify runs the external pre-validation checks on a pending payment.
func (h *TransactionHandler) Verify(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Missing session token"})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid transaction ID"})
	}

	result, err := h.Flow.PreValidateAndVerify(c.Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}

	slog.Info("Transaction pre-validated", "id", id, "verified", result.Verified, "employee", actor.ID)
	return c.JSON(fiber.Map{
		"transaction":   result.Transaction,
		"verified":      result.Verified,
		"failed_checks": result.FailedChecks,
	})
}

// Reject declines a pending payment.
func (h *TransactionHandler) Reject(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Missing session token"})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid transaction ID"})
	}

	var req rejectRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
	}

	tx, err := h.Flow.Reject(c.Context(), actor, id, req.Notes)
	if err != nil {
		return writeError(c, err)
	}

	slog.Info("Transaction rejected", "id", id, "employee", actor.ID)
	return c.JSON(fiber.Map{"transaction": tx})
}

// Submit sends a verified payment to the settlement network.
func (h *TransactionHandler) Submit(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Missing session token"})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid transaction ID"})
	}

	result, err := h.Flow.SubmitToNetwork(c.Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}

	slog.Info("🚀 Transaction submitted to network", "id", id, "reference", result.Reference)
	return c.JSON(fiber.Map{
		"transaction":          result.Transaction,
		"submission_reference": result.Reference,
	})
}
