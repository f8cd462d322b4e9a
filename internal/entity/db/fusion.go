package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	FusionStatusPending   = "pending"
	FusionStatusSucceeded = "succeeded"
	FusionStatusFallback  = "fallback"
)

// StageLogEntry 记录流水线单个阶段的执行结果。
type StageLogEntry struct {
	Stage      string `json:"stage"`
	Status     string `json:"status"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// StageLog 以 JSON 格式存储阶段执行记录列表。
type StageLog []StageLogEntry

// Value 实现 driver.Valuer 接口。
func (l StageLog) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal([]StageLogEntry(l))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan 实现 sql.Scanner 接口。
func (l *StageLog) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		if len(v) == 0 {
			*l = StageLog{}
			return nil
		}
		return json.Unmarshal(v, (*[]StageLogEntry)(l))
	case string:
		if v == "" {
			*l = StageLog{}
			return nil
		}
		return json.Unmarshal([]byte(v), (*[]StageLogEntry)(l))
	default:
		return fmt.Errorf("unsupported type for StageLog: %T", value)
	}
}

// Fusion stores one fusion generation run and its gallery entry.
type Fusion struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID uint  `gorm:"column:user_id;index" json:"user_id"`
	User   *User `gorm:"foreignKey:UserID" json:"-"`

	CorrelationID string `gorm:"column:correlation_id;type:varchar(64);index" json:"correlation_id"`

	HeadName   string `gorm:"column:head_name;type:varchar(128);index" json:"head_name"`
	BodyName   string `gorm:"column:body_name;type:varchar(128);index" json:"body_name"`
	FusionName string `gorm:"column:fusion_name;type:varchar(255)" json:"fusion_name"`

	SourceImage1 string `gorm:"column:source_image_1;type:text" json:"source_image_1"`
	SourceImage2 string `gorm:"column:source_image_2;type:text" json:"source_image_2"`
	OutputImage  string `gorm:"column:output_image;type:text" json:"output_image"`

	Status     string `gorm:"column:status;type:varchar(32);index" json:"status"`
	IsFallback bool   `gorm:"column:is_fallback;not null;default:false" json:"is_fallback"`
	Saved      bool   `gorm:"column:saved;not null;default:false" json:"saved"`

	Description  string   `gorm:"column:description;type:text" json:"description"`
	StageLog     StageLog `gorm:"column:stage_log;type:json" json:"stage_log"`
	ErrorMessage string   `gorm:"column:error_message;type:text" json:"error_message"`

	Likes     []FusionLike     `gorm:"foreignKey:FusionID" json:"-"`
	Favorites []FusionFavorite `gorm:"foreignKey:FusionID" json:"-"`
}

// TableName 指定表名
func (Fusion) TableName() string {
	return "fusions"
}

// IsTerminal 判断融合记录是否处于终态。
func (f *Fusion) IsTerminal() bool {
	if f == nil {
		return false
	}
	return f.Status == FusionStatusSucceeded || f.Status == FusionStatusFallback
}
