package dto

import (
	"time"

	"pokefusion/internal/entity/common"
)

// CreditBalanceResponse reports the viewer's current credit balance.
type CreditBalanceResponse struct {
	Balance int64 `json:"balance"`
}

// CreditLedgerItem is one ledger row returned to clients.
type CreditLedgerItem struct {
	ID        uint      `json:"id"`
	Amount    int       `json:"amount"`
	Reason    string    `json:"reason"`
	FusionID  *uint     `json:"fusion_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreditLedgerResponse is the paginated ledger listing.
type CreditLedgerResponse struct {
	Entries []CreditLedgerItem `json:"entries"`
	Balance int64              `json:"balance"`
	Meta    *common.Meta       `json:"meta"`
}

// CreditGrantRequest is the admin payload for granting credits to a user.
type CreditGrantRequest struct {
	Amount int    `json:"amount" binding:"required"`
	Reason string `json:"reason"`
}
