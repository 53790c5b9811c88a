package models

import "github.com/golang-jwt/jwt/v5"

// Application permissions
const (
	PermissionWalletRead      = "wallet:read"
	PermissionWalletWrite     = "wallet:write"
	PermissionLedgerRead      = "ledger:read"
	PermissionLedgerWrite     = "ledger:write"
	PermissionWithdrawalWrite = "withdrawal:write"
	PermissionReadAdmin       = "admin:read"
	PermissionWriteAdmin      = "admin:write"
)

// UserClaims is the identity supplied by the auth collaborator. The engine
// trusts it as-is and performs no authentication of its own.
type UserClaims struct {
	jwt.RegisteredClaims
	UserID      uint     `json:"user_id"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// HasPermission checks if the claims include a specific permission
func (c *UserClaims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}
