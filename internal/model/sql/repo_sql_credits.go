package sql

import (
	"context"
	"fmt"

	"pokefusion/internal/entity"
)

// CreateCreditEntry appends an immutable ledger entry.
func (r *GormRepository) CreateCreditEntry(ctx context.Context, entry *entity.DbCreditLedgerEntry) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if entry == nil {
		return fmt.Errorf("entry is nil")
	}
	if entry.UserID == 0 {
		return fmt.Errorf("invalid user id")
	}
	if entry.Amount == 0 {
		return fmt.Errorf("amount must be non-zero")
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// CreditBalance computes the balance as the signed sum of all ledger entries.
func (r *GormRepository) CreditBalance(ctx context.Context, userID uint) (int64, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("repository not initialised")
	}
	if userID == 0 {
		return 0, fmt.Errorf("invalid user id")
	}

	var balance int64
	err := r.db.WithContext(ctx).
		Model(&entity.DbCreditLedgerEntry{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&balance).Error
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// ListCreditEntries returns the user's ledger, newest first.
func (r *GormRepository) ListCreditEntries(ctx context.Context, userID uint, params *entity.BaseParams) ([]entity.DbCreditLedgerEntry, *entity.Meta, error) {
	if r == nil || r.db == nil {
		return nil, nil, fmt.Errorf("repository not initialised")
	}
	if userID == 0 {
		return nil, nil, fmt.Errorf("invalid user id")
	}

	query := r.db.WithContext(ctx).
		Model(&entity.DbCreditLedgerEntry{}).
		Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	page, pageSize, offset := resolvePage(params)

	var entries []entity.DbCreditLedgerEntry
	if err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&entries).Error; err != nil {
		return nil, nil, err
	}

	meta := r.calculatePagination(total, page, pageSize)
	return entries, meta, nil
}
