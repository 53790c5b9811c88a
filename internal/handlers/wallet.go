package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"ledgerpay/internal/models"
	"ledgerpay/internal/services/wallet"
	"ledgerpay/internal/utils"
)

type WalletHandler struct {
	walletService wallet.Service
}

func NewWalletHandler(walletService wallet.Service) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
	}
}

// GetWallet returns the caller's wallet snapshot.
func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	snapshot, err := h.walletService.GetSnapshot(c.Context(), claims.UserID)
	if err != nil {
		return respondError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"wallet": snapshot,
	})
}

func (h *WalletHandler) GetBalance(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	balance, err := h.walletService.GetBalance(c.Context(), claims.UserID)
	if err != nil {
		return respondError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"balance": balance,
	})
}

func (h *WalletHandler) UpdateBankAccount(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input models.BankAccount
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	w, err := h.walletService.UpdateBankAccount(c.Context(), claims.UserID, input)
	if err != nil {
		return respondError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"message":      "bank account updated, verification required",
		"bank_account": w.BankAccount,
	})
}

func (h *WalletHandler) VerifyBankAccount(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	w, err := h.walletService.VerifyBankAccount(c.Context(), claims.UserID)
	if err != nil {
		return respondError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"message":      "bank account verified",
		"bank_account": w.BankAccount,
	})
}

// CreateWallet provisions a wallet for a user. Admin only; called when the
// platform onboards a vendor or dispatch rider.
func (h *WalletHandler) CreateWallet(c *fiber.Ctx) error {
	var input struct {
		UserID      uint           `json:"user_id"`
		AccountType models.Account `json:"account_type"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if input.AccountType == "" {
		input.AccountType = models.AccountWalletVendor
	}

	w, err := h.walletService.Create(c.Context(), input.UserID, input.AccountType)
	if err != nil {
		return respondError(c, err)
	}

	return utils.Respond(c, fiber.StatusCreated, fiber.Map{
		"wallet": w,
	})
}

// UpdateLimits adjusts a wallet's withdrawal limits. Admin only.
func (h *WalletHandler) UpdateLimits(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("userId")
	if err != nil || userID <= 0 {
		return utils.BadRequest(c, "invalid user id")
	}

	var input struct {
		DailyWithdrawal   decimal.Decimal `json:"daily_withdrawal"`
		MonthlyWithdrawal decimal.Decimal `json:"monthly_withdrawal"`
		MinimumBalance    decimal.Decimal `json:"minimum_balance"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	limits := models.WalletLimits{
		DailyWithdrawal:   input.DailyWithdrawal,
		MonthlyWithdrawal: input.MonthlyWithdrawal,
		MinimumBalance:    input.MinimumBalance,
	}
	if err := h.walletService.UpdateLimits(c.Context(), uint(userID), limits); err != nil {
		return respondError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"message": "limits updated",
		"limits":  limits,
	})
}

// SetStatus suspends, freezes, reactivates or closes a wallet. Admin only.
func (h *WalletHandler) SetStatus(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("userId")
	if err != nil || userID <= 0 {
		return utils.BadRequest(c, "invalid user id")
	}

	var input struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	if err := h.walletService.SetStatus(c.Context(), uint(userID), input.Status, input.Reason); err != nil {
		return respondError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"message": "wallet status updated",
		"status":  input.Status,
	})
}
