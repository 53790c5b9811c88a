package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"ledgerpay/internal/models"
	"ledgerpay/internal/services/commission"
	"ledgerpay/internal/services/ledger"
	"ledgerpay/internal/utils"
)

type TransactionHandler struct {
	ledgerService ledger.Service
}

func NewTransactionHandler(ledgerService ledger.Service) *TransactionHandler {
	return &TransactionHandler{
		ledgerService: ledgerService,
	}
}

func (h *TransactionHandler) GetTransaction(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	tx, err := h.ledgerService.GetTransaction(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if claims.Role != "admin" && tx.WalletDelta(claims.UserID).IsZero() {
		return utils.NotFound(c, "transaction not found")
	}

	return utils.Success(c, fiber.Map{
		"transaction": tx,
	})
}

// GetByReference recovers a transaction by its idempotency key. Lets a
// client that never saw the commit response find out what happened.
func (h *TransactionHandler) GetByReference(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	tx, err := h.ledgerService.GetByReference(c.Context(), c.Params("reference"))
	if err != nil {
		return respondError(c, err)
	}
	if claims.Role != "admin" && tx.WalletDelta(claims.UserID).IsZero() {
		return utils.NotFound(c, "transaction not found")
	}

	return utils.Success(c, fiber.Map{
		"transaction": tx,
	})
}

// Statement lists the caller's transactions, newest first.
func (h *TransactionHandler) Statement(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	page := utils.GetPagination(c, 1, 20)

	transactions, total, err := h.ledgerService.Statement(c.Context(), claims.UserID, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}

	page.SetTotal(total)
	return utils.Success(c, utils.NewPaginatedResponse(transactions, page))
}

// SettleOrder commits an order settlement: commission and VAT split across
// the vendor, dispatch and platform accounts. Called by the order service.
func (h *TransactionHandler) SettleOrder(c *fiber.Ctx) error {
	var input struct {
		Reference         string          `json:"reference"`
		OrderReference    string          `json:"order_reference"`
		OrderTotal        decimal.Decimal `json:"order_total"`
		PlatformRate      decimal.Decimal `json:"platform_rate"`
		DispatchFee       decimal.Decimal `json:"dispatch_fee"`
		VATRate           decimal.Decimal `json:"vat_rate"`
		VATResponsibility string          `json:"vat_responsibility"`
		VendorID          uint            `json:"vendor_id"`
		DispatchID        uint            `json:"dispatch_id"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if input.Reference == "" {
		return utils.BadRequest(c, "a settlement reference is required")
	}

	tx, err := h.ledgerService.SettleOrder(c.Context(), commission.OrderInput{
		OrderReference:    input.OrderReference,
		OrderTotal:        input.OrderTotal,
		PlatformRate:      input.PlatformRate,
		DispatchFee:       input.DispatchFee,
		VATRate:           input.VATRate,
		VATResponsibility: models.VATResponsibility(input.VATResponsibility),
		VendorID:          input.VendorID,
		DispatchID:        input.DispatchID,
	}, input.Reference)
	if err != nil {
		return respondError(c, err)
	}

	return utils.Respond(c, fiber.StatusCreated, fiber.Map{
		"transaction": tx,
	})
}

// Reverse creates the compensating transaction for a completed one.
// Admin only.
func (h *TransactionHandler) Reverse(c *fiber.Ctx) error {
	var input struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if input.Reason == "" {
		return utils.BadRequest(c, "a reversal reason is required")
	}

	tx, err := h.ledgerService.Reverse(c.Context(), c.Params("id"), input.Reason)
	if err != nil {
		return respondError(c, err)
	}

	return utils.Respond(c, fiber.StatusCreated, fiber.Map{
		"message":  "transaction reversed",
		"reversal": tx,
	})
}

// RemitVAT records a VAT payment to the tax authority. Admin only.
func (h *TransactionHandler) RemitVAT(c *fiber.Ctx) error {
	var input struct {
		Amount    decimal.Decimal `json:"amount"`
		Reference string          `json:"reference"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if input.Reference == "" {
		return utils.BadRequest(c, "a remittance reference is required")
	}

	tx, err := h.ledgerService.RemitVAT(c.Context(), input.Amount, input.Reference)
	if err != nil {
		return respondError(c, err)
	}

	return utils.Respond(c, fiber.StatusCreated, fiber.Map{
		"transaction": tx,
	})
}

// ReplayBalance recomputes a wallet balance from the entry log. Admin
// audit endpoint: the replayed figure must equal the stored balance.
func (h *TransactionHandler) ReplayBalance(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("userId")
	if err != nil || userID <= 0 {
		return utils.BadRequest(c, "invalid user id")
	}

	balance, err := h.ledgerService.ReplayBalance(c.Context(), uint(userID))
	if err != nil {
		return respondError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"user_id":          userID,
		"replayed_balance": balance,
	})
}
