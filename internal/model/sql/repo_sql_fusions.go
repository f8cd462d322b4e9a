package sql

import (
	"context"
	"fmt"
	"strings"

	"pokefusion/internal/entity"
)

// CreateFusion inserts a new fusion run record.
func (r *GormRepository) CreateFusion(ctx context.Context, fusion *entity.DbFusion) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if fusion == nil {
		return fmt.Errorf("fusion is nil")
	}
	return r.db.WithContext(ctx).Create(fusion).Error
}

// UpdateFusion updates a fusion record with the provided fields.
func (r *GormRepository) UpdateFusion(ctx context.Context, id uint, updates entity.FusionUpdates) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid fusion id")
	}
	if updates.IsEmpty() {
		return fmt.Errorf("no updates provided")
	}
	return r.db.WithContext(ctx).Model(&entity.DbFusion{}).Where("id = ?", id).Updates(updates.ToMap()).Error
}

// GetFusion loads one fusion record with its owner preloaded.
func (r *GormRepository) GetFusion(ctx context.Context, id uint) (*entity.DbFusion, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return nil, fmt.Errorf("invalid fusion id")
	}
	var fusion entity.DbFusion
	if err := r.db.WithContext(ctx).Preload("User").First(&fusion, id).Error; err != nil {
		return nil, err
	}
	return &fusion, nil
}

// ListFusions retrieves paginated fusion records.
func (r *GormRepository) ListFusions(ctx context.Context, params *entity.FusionQuery) ([]entity.DbFusion, *entity.Meta, error) {
	if r == nil || r.db == nil {
		return nil, nil, fmt.Errorf("repository not initialised")
	}

	query := r.db.WithContext(ctx).
		Model(&entity.DbFusion{}).
		Preload("User")
	if params != nil {
		if !params.IncludeAll && params.UserID > 0 {
			query = query.Where("fusions.user_id = ?", params.UserID)
		}
		if trimmed := strings.TrimSpace(params.Pokemon); trimmed != "" {
			kw := "%" + strings.ToLower(trimmed) + "%"
			query = query.Where("LOWER(head_name) LIKE ? OR LOWER(body_name) LIKE ?", kw, kw)
		}
		if trimmed := strings.ToLower(strings.TrimSpace(params.Result)); trimmed != "" && trimmed != "all" {
			switch trimmed {
			case "success":
				query = query.Where("status = ?", entity.FusionStatusSucceeded)
			case "fallback":
				query = query.Where("status = ?", entity.FusionStatusFallback)
			case "pending":
				query = query.Where("status = ?", entity.FusionStatusPending)
			}
		}
		if params.Liked && params.ViewerID > 0 {
			query = query.Joins("JOIN fusion_likes ON fusion_likes.fusion_id = fusions.id").
				Where("fusion_likes.user_id = ?", params.ViewerID)
		}
		if params.Favorited && params.ViewerID > 0 {
			query = query.Joins("JOIN fusion_favorites ON fusion_favorites.fusion_id = fusions.id").
				Where("fusion_favorites.user_id = ?", params.ViewerID)
		}
	}

	var totalCount int64
	if err := query.Count(&totalCount).Error; err != nil {
		return nil, nil, err
	}

	var base *entity.BaseParams
	if params != nil {
		base = &params.BaseParams
	}
	page, pageSize, offset := resolvePage(base)

	var fusions []entity.DbFusion
	if err := query.Order("fusions.created_at DESC, fusions.id DESC").Offset(offset).Limit(pageSize).Find(&fusions).Error; err != nil {
		return nil, nil, err
	}

	meta := r.calculatePagination(totalCount, page, pageSize)
	return fusions, meta, nil
}

// DeleteFusion removes a fusion record along with its reactions.
func (r *GormRepository) DeleteFusion(ctx context.Context, id uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid fusion id")
	}

	if err := r.db.WithContext(ctx).Where("fusion_id = ?", id).Delete(&entity.DbFusionLike{}).Error; err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Where("fusion_id = ?", id).Delete(&entity.DbFusionFavorite{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(&entity.DbFusion{}, id).Error
}
