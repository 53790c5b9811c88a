package handlers

import (
	"github.com/gofiber/fiber/v2"

	"ledgerpay/internal/gateway"
	"ledgerpay/internal/utils"
)

// BankHandler serves bank lookups off the payment gateway.
type BankHandler struct {
	gateway gateway.Gateway
}

func NewBankHandler(gw gateway.Gateway) *BankHandler {
	return &BankHandler{gateway: gw}
}

func (h *BankHandler) List(c *fiber.Ctx) error {
	banks, err := h.gateway.ListBanks(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.Map{
		"banks": banks,
	})
}

// Resolve confirms an account name before the caller saves it.
func (h *BankHandler) Resolve(c *fiber.Ctx) error {
	accountNumber := c.Query("account_number")
	bankCode := c.Query("bank_code")
	if accountNumber == "" || bankCode == "" {
		return utils.BadRequest(c, "account_number and bank_code are required")
	}

	name, err := h.gateway.ResolveAccountName(c.Context(), accountNumber, bankCode)
	if err != nil {
		return respondError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"account_name":   name,
		"account_number": accountNumber,
		"bank_code":      bankCode,
	})
}
