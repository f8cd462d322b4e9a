package db

import "time"

// Pokemon 是可用于融合的宝可梦图鉴条目。
type Pokemon struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Number    int    `gorm:"column:number;uniqueIndex;not null" json:"number"`
	Name      string `gorm:"column:name;type:varchar(128);uniqueIndex;not null" json:"name"`
	SpriteURL string `gorm:"column:sprite_url;type:text" json:"sprite_url"`
	IsActive  bool   `gorm:"column:is_active;not null;default:true" json:"is_active"`
}

// TableName 指定表名
func (Pokemon) TableName() string {
	return "pokemons"
}
