package converter

import (
	"pokefusion/internal/entity/db"
	"pokefusion/internal/entity/dto"
)

// LedgerEntryToItem converts a ledger row to its client view.
func LedgerEntryToItem(e *db.CreditLedgerEntry) dto.CreditLedgerItem {
	if e == nil {
		return dto.CreditLedgerItem{}
	}
	return dto.CreditLedgerItem{
		ID:        e.ID,
		Amount:    e.Amount,
		Reason:    e.Reason,
		FusionID:  e.FusionID,
		CreatedAt: e.CreatedAt,
	}
}

// LedgerEntriesToItems converts a slice of ledger rows.
func LedgerEntriesToItems(entries []db.CreditLedgerEntry) []dto.CreditLedgerItem {
	items := make([]dto.CreditLedgerItem, len(entries))
	for i, e := range entries {
		items[i] = LedgerEntryToItem(&e)
	}
	return items
}
