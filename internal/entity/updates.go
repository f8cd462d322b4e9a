package entity

// UserUpdates 用户更新字段
type UserUpdates struct {
	DisplayName  *string
	Role         *string
	PasswordHash *string
	IsActive     *bool
}

// ToMap 转换为 GORM 更新 map（内部使用）
func (u UserUpdates) ToMap() map[string]interface{} {
	updates := make(map[string]interface{})
	if u.DisplayName != nil {
		updates["display_name"] = *u.DisplayName
	}
	if u.Role != nil {
		updates["role"] = *u.Role
	}
	if u.PasswordHash != nil {
		updates["password_hash"] = *u.PasswordHash
	}
	if u.IsActive != nil {
		updates["is_active"] = *u.IsActive
	}
	return updates
}

// IsEmpty 检查是否没有任何更新字段
func (u UserUpdates) IsEmpty() bool {
	return len(u.ToMap()) == 0
}

// FusionUpdates 融合记录更新字段
type FusionUpdates struct {
	FusionName   *string
	SourceImage1 *string
	SourceImage2 *string
	OutputImage  *string
	Status       *string
	IsFallback   *bool
	Saved        *bool
	Description  *string
	StageLog     *StageLog
	ErrorMessage *string
}

// ToMap 转换为 GORM 更新 map（内部使用）
func (u FusionUpdates) ToMap() map[string]interface{} {
	updates := make(map[string]interface{})
	if u.FusionName != nil {
		updates["fusion_name"] = *u.FusionName
	}
	if u.SourceImage1 != nil {
		updates["source_image_1"] = *u.SourceImage1
	}
	if u.SourceImage2 != nil {
		updates["source_image_2"] = *u.SourceImage2
	}
	if u.OutputImage != nil {
		updates["output_image"] = *u.OutputImage
	}
	if u.Status != nil {
		updates["status"] = *u.Status
	}
	if u.IsFallback != nil {
		updates["is_fallback"] = *u.IsFallback
	}
	if u.Saved != nil {
		updates["saved"] = *u.Saved
	}
	if u.Description != nil {
		updates["description"] = *u.Description
	}
	if u.StageLog != nil {
		updates["stage_log"] = *u.StageLog
	}
	if u.ErrorMessage != nil {
		updates["error_message"] = *u.ErrorMessage
	}
	return updates
}

// IsEmpty 检查是否没有任何更新字段
func (u FusionUpdates) IsEmpty() bool {
	return len(u.ToMap()) == 0
}

// PokemonUpdates 图鉴条目更新字段
type PokemonUpdates struct {
	Number    *int
	Name      *string
	SpriteURL *string
	IsActive  *bool
}

// ToMap 转换为 GORM 更新 map（内部使用）
func (u PokemonUpdates) ToMap() map[string]interface{} {
	updates := make(map[string]interface{})
	if u.Number != nil {
		updates["number"] = *u.Number
	}
	if u.Name != nil {
		updates["name"] = *u.Name
	}
	if u.SpriteURL != nil {
		updates["sprite_url"] = *u.SpriteURL
	}
	if u.IsActive != nil {
		updates["is_active"] = *u.IsActive
	}
	return updates
}

// IsEmpty 检查是否没有任何更新字段
func (u PokemonUpdates) IsEmpty() bool {
	return len(u.ToMap()) == 0
}
