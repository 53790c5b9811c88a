package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	apperr "ledgerpay/internal/errors"
	"ledgerpay/internal/models"
	"ledgerpay/internal/utils"
)

// respondError translates a domain error into the HTTP response shape.
// Limit errors carry the usage snapshot so clients can show the caller
// exactly which cap they hit.
func respondError(c *fiber.Ctx, err error) error {
	var domainErr *apperr.DomainError
	if !errors.As(err, &domainErr) {
		return utils.InternalError(c, "internal error")
	}

	body := fiber.Map{
		"error": domainErr.Message,
		"code":  domainErr.Code,
	}
	if domainErr.Usage != nil {
		body["limit_usage"] = domainErr.Usage
	}

	switch domainErr.Kind {
	case apperr.KindValidation:
		return utils.Respond(c, fiber.StatusBadRequest, body)
	case apperr.KindLimitExceeded:
		return utils.Respond(c, fiber.StatusUnprocessableEntity, body)
	case apperr.KindConflict:
		return utils.Respond(c, fiber.StatusConflict, body)
	case apperr.KindNotFound:
		return utils.Respond(c, fiber.StatusNotFound, body)
	case apperr.KindGateway:
		return utils.Respond(c, fiber.StatusBadGateway, body)
	default:
		return utils.InternalError(c, "internal error")
	}
}

// extractUserClaims is a helper function to reduce duplication
func extractUserClaims(c *fiber.Ctx) (*models.UserClaims, error) {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok || claims == nil {
		return nil, fiber.ErrUnauthorized
	}
	return claims, nil
}
