package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ledgerpay/internal/services/withdrawal"
	"ledgerpay/internal/utils"
)

type WithdrawalHandler struct {
	withdrawalService withdrawal.Service
}

func NewWithdrawalHandler(withdrawalService withdrawal.Service) *WithdrawalHandler {
	return &WithdrawalHandler{
		withdrawalService: withdrawalService,
	}
}

// Request creates a pending withdrawal for the caller. The reference is
// client-supplied for idempotency; a missing one gets generated.
func (h *WithdrawalHandler) Request(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Amount    decimal.Decimal `json:"amount"`
		Reference string          `json:"reference"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if input.Reference == "" {
		input.Reference = "WD-" + uuid.NewString()
	}

	tx, err := h.withdrawalService.Request(c.Context(), claims.UserID, input.Amount, input.Reference)
	if err != nil {
		return respondError(c, err)
	}

	return utils.Respond(c, fiber.StatusCreated, fiber.Map{
		"withdrawal": tx,
	})
}

func (h *WithdrawalHandler) Get(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	tx, err := h.withdrawalService.Get(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	// Non-admins may only see their own withdrawals.
	if claims.Role != "admin" && tx.WalletDelta(claims.UserID).IsZero() {
		return utils.NotFound(c, "withdrawal not found")
	}

	return utils.Success(c, fiber.Map{
		"withdrawal": tx,
	})
}

// Cancel withdraws the caller's own pending request.
func (h *WithdrawalHandler) Cancel(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	tx, err := h.withdrawalService.Cancel(c.Context(), c.Params("id"), claims.UserID)
	if err != nil {
		return respondError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"message":    "withdrawal cancelled",
		"withdrawal": tx,
	})
}

// Approve pushes a pending withdrawal through the gateway. Admin only.
func (h *WithdrawalHandler) Approve(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	tx, err := h.withdrawalService.Approve(c.Context(), c.Params("id"), claims.UserID)
	if err != nil {
		return respondError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"withdrawal": tx,
	})
}

// Reject cancels a pending withdrawal and refunds the wallet. Admin only.
func (h *WithdrawalHandler) Reject(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if input.Reason == "" {
		return utils.BadRequest(c, "a rejection reason is required")
	}

	tx, err := h.withdrawalService.Reject(c.Context(), c.Params("id"), claims.UserID, input.Reason)
	if err != nil {
		return respondError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"message":    "withdrawal rejected",
		"withdrawal": tx,
	})
}
