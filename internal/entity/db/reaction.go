package db

import "time"

// FusionLike 记录用户对融合图的点赞，同一用户对同一记录最多一条。
type FusionLike struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	FusionID uint `gorm:"column:fusion_id;uniqueIndex:idx_fusion_like_user;not null" json:"fusion_id"`
	UserID   uint `gorm:"column:user_id;uniqueIndex:idx_fusion_like_user;not null" json:"user_id"`
}

// TableName 指定表名
func (FusionLike) TableName() string {
	return "fusion_likes"
}

// FusionFavorite 记录用户收藏的融合图。
type FusionFavorite struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	FusionID uint `gorm:"column:fusion_id;uniqueIndex:idx_fusion_favorite_user;not null" json:"fusion_id"`
	UserID   uint `gorm:"column:user_id;uniqueIndex:idx_fusion_favorite_user;not null" json:"user_id"`
}

// TableName 指定表名
func (FusionFavorite) TableName() string {
	return "fusion_favorites"
}
