package sql

import (
	"context"
	"fmt"

	"pokefusion/internal/entity"

	"gorm.io/gorm/clause"
)

// LikeFusion records a like. Repeated likes are absorbed by the unique index.
func (r *GormRepository) LikeFusion(ctx context.Context, fusionID, userID uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if fusionID == 0 || userID == 0 {
		return fmt.Errorf("invalid fusion or user id")
	}
	like := entity.DbFusionLike{FusionID: fusionID, UserID: userID}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error
}

// UnlikeFusion removes a like if present.
func (r *GormRepository) UnlikeFusion(ctx context.Context, fusionID, userID uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	return r.db.WithContext(ctx).
		Where("fusion_id = ? AND user_id = ?", fusionID, userID).
		Delete(&entity.DbFusionLike{}).Error
}

// FavoriteFusion records a favorite. Repeated favorites are absorbed by the unique index.
func (r *GormRepository) FavoriteFusion(ctx context.Context, fusionID, userID uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if fusionID == 0 || userID == 0 {
		return fmt.Errorf("invalid fusion or user id")
	}
	fav := entity.DbFusionFavorite{FusionID: fusionID, UserID: userID}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&fav).Error
}

// UnfavoriteFusion removes a favorite if present.
func (r *GormRepository) UnfavoriteFusion(ctx context.Context, fusionID, userID uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	return r.db.WithContext(ctx).
		Where("fusion_id = ? AND user_id = ?", fusionID, userID).
		Delete(&entity.DbFusionFavorite{}).Error
}

type reactionCountRow struct {
	FusionID uint
	Count    int64
}

// FusionReactionStats aggregates like/favorite counts for the given fusions,
// flagging the ones the viewer reacted to. viewerID of 0 means anonymous.
func (r *GormRepository) FusionReactionStats(ctx context.Context, fusionIDs []uint, viewerID uint) (map[uint]entity.FusionReactionStats, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}

	stats := make(map[uint]entity.FusionReactionStats, len(fusionIDs))
	if len(fusionIDs) == 0 {
		return stats, nil
	}

	var likeRows []reactionCountRow
	if err := r.db.WithContext(ctx).
		Model(&entity.DbFusionLike{}).
		Select("fusion_id AS fusion_id, COUNT(*) AS count").
		Where("fusion_id IN ?", fusionIDs).
		Group("fusion_id").
		Scan(&likeRows).Error; err != nil {
		return nil, err
	}
	for _, row := range likeRows {
		s := stats[row.FusionID]
		s.LikeCount = row.Count
		stats[row.FusionID] = s
	}

	var favRows []reactionCountRow
	if err := r.db.WithContext(ctx).
		Model(&entity.DbFusionFavorite{}).
		Select("fusion_id AS fusion_id, COUNT(*) AS count").
		Where("fusion_id IN ?", fusionIDs).
		Group("fusion_id").
		Scan(&favRows).Error; err != nil {
		return nil, err
	}
	for _, row := range favRows {
		s := stats[row.FusionID]
		s.FavoriteCount = row.Count
		stats[row.FusionID] = s
	}

	if viewerID > 0 {
		var likedIDs []uint
		if err := r.db.WithContext(ctx).
			Model(&entity.DbFusionLike{}).
			Where("fusion_id IN ? AND user_id = ?", fusionIDs, viewerID).
			Pluck("fusion_id", &likedIDs).Error; err != nil {
			return nil, err
		}
		for _, id := range likedIDs {
			s := stats[id]
			s.ViewerLiked = true
			stats[id] = s
		}

		var favedIDs []uint
		if err := r.db.WithContext(ctx).
			Model(&entity.DbFusionFavorite{}).
			Where("fusion_id IN ? AND user_id = ?", fusionIDs, viewerID).
			Pluck("fusion_id", &favedIDs).Error; err != nil {
			return nil, err
		}
		for _, id := range favedIDs {
			s := stats[id]
			s.ViewerFaved = true
			stats[id] = s
		}
	}

	return stats, nil
}
