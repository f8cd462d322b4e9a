package dto

import (
	"time"

	"pokefusion/internal/entity/common"
	"pokefusion/internal/entity/db"
)

// GenerateFusionRequest is the request payload for starting a fusion run.
//
// 两个来源图可以通过图鉴 ID 或直接的图片引用（URL/base64）提供，二选一。
type GenerateFusionRequest struct {
	ClientID string `json:"client_id,omitempty"` // 客户端ID，SSE推送使用

	HeadPokemonID uint `json:"head_pokemon_id,omitempty"`
	BodyPokemonID uint `json:"body_pokemon_id,omitempty"`

	HeadName     string `json:"head_name,omitempty"`
	BodyName     string `json:"body_name,omitempty"`
	SourceImage1 string `json:"source_image_1,omitempty"`
	SourceImage2 string `json:"source_image_2,omitempty"`

	FusionName string `json:"fusion_name,omitempty"`
}

// GenerateFusionResponse acknowledges an accepted fusion run.
type GenerateFusionResponse struct {
	FusionID uint   `json:"fusion_id"`
	Status   string `json:"status"`
}

// FusionEvent is one progress event delivered over SSE or polling.
type FusionEvent struct {
	Stage     string    `json:"stage"`
	Status    string    `json:"status"`
	Data      string    `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// FusionStatusResponse is the polling view of one run: the events observed so
// far in emission order, plus the terminal record once the run finished.
type FusionStatusResponse struct {
	FusionID uint          `json:"fusion_id"`
	Status   string        `json:"status"`
	Done     bool          `json:"done"`
	Events   []FusionEvent `json:"events"`
	Record   *FusionItem   `json:"record,omitempty"`
}

// FusionImage pairs a stored path with its public URL.
type FusionImage struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// FusionItem is a gallery entry returned to clients.
type FusionItem struct {
	ID            uint         `json:"id"`
	HeadName      string       `json:"head_name"`
	BodyName      string       `json:"body_name"`
	FusionName    string       `json:"fusion_name"`
	Status        string       `json:"status"`
	IsFallback    bool         `json:"is_fallback"`
	Saved         bool         `json:"saved"`
	Description   string       `json:"description,omitempty"`
	ErrorMessage  string       `json:"error_message,omitempty"`
	SourceImage1  FusionImage  `json:"source_image_1"`
	SourceImage2  FusionImage  `json:"source_image_2"`
	OutputImage   FusionImage  `json:"output_image"`
	StageLog      db.StageLog  `json:"stage_log,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	User          UserSummary  `json:"user"`
	LikeCount     int64        `json:"like_count"`
	FavoriteCount int64        `json:"favorite_count"`
	ViewerLiked   bool         `json:"viewer_liked"`
	ViewerFaved   bool         `json:"viewer_faved"`
}

// FusionQuery filters the gallery listing.
type FusionQuery struct {
	common.BaseParams
	Pokemon   string `json:"pokemon" form:"pokemon" query:"pokemon"`
	Result    string `json:"result" form:"result" query:"result"`
	Liked     bool   `json:"liked" form:"liked" query:"liked"`
	Favorited bool   `json:"favorited" form:"favorited" query:"favorited"`

	UserID     uint `json:"-" form:"-" query:"-"`
	ViewerID   uint `json:"-" form:"-" query:"-"`
	IncludeAll bool `json:"-" form:"-" query:"-"`
}

// FusionReactionStats aggregates likes/favorites for one fusion, including
// whether the viewing user reacted.
type FusionReactionStats struct {
	LikeCount     int64 `json:"like_count"`
	FavoriteCount int64 `json:"favorite_count"`
	ViewerLiked   bool  `json:"viewer_liked"`
	ViewerFaved   bool  `json:"viewer_faved"`
}

// FusionListResponse is the paginated gallery response.
type FusionListResponse struct {
	Fusions []FusionItem `json:"fusions"`
	Meta    *common.Meta `json:"meta"`
}

// FusionDetailResponse wraps a single gallery entry.
type FusionDetailResponse struct {
	Fusion FusionItem `json:"fusion"`
}
