package handlers

import (
	"github.com/gofiber/fiber/v2"

	"ledgerpay/internal/services/report"
	"ledgerpay/internal/utils"
)

// ReportHandler exposes the admin aggregate views.
type ReportHandler struct {
	reportService report.Service
}

func NewReportHandler(reportService report.Service) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
	}
}

func (h *ReportHandler) VAT(c *fiber.Ctx) error {
	summary, err := h.reportService.VAT(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.Map{
		"vat": summary,
	})
}

func (h *ReportHandler) Commission(c *fiber.Ctx) error {
	summary, err := h.reportService.Commission(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.Map{
		"commission": summary,
	})
}

func (h *ReportHandler) Withdrawals(c *fiber.Ctx) error {
	volume, err := h.reportService.WithdrawalVolume(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.Map{
		"withdrawal_volume": volume,
	})
}

// UserStatement lets an admin pull any user's transaction history.
func (h *ReportHandler) UserStatement(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("userId")
	if err != nil || userID <= 0 {
		return utils.BadRequest(c, "invalid user id")
	}

	page := utils.GetPagination(c, 1, 20)

	transactions, total, err := h.reportService.Statement(c.Context(), uint(userID), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}

	page.SetTotal(total)
	return utils.Success(c, utils.NewPaginatedResponse(transactions, page))
}
