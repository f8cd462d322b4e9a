package model

import (
	"context"

	"pokefusion/internal/entity"
)

// Repository 定义数据库操作接口
type Repository interface {
	// 用户管理
	CreateUser(ctx context.Context, user *entity.DbUser) error
	UpdateUser(ctx context.Context, id uint, updates entity.UserUpdates) error
	GetUserByEmail(ctx context.Context, email string) (*entity.DbUser, error)
	GetUserByID(ctx context.Context, id uint) (*entity.DbUser, error)
	ListUsers(ctx context.Context, params *entity.UserQuery) ([]entity.DbUser, *entity.Meta, error)
	DeleteUser(ctx context.Context, id uint) error
	CountUsers(ctx context.Context) (int64, error)

	// 融合记录
	CreateFusion(ctx context.Context, fusion *entity.DbFusion) error
	UpdateFusion(ctx context.Context, id uint, updates entity.FusionUpdates) error
	GetFusion(ctx context.Context, id uint) (*entity.DbFusion, error)
	ListFusions(ctx context.Context, params *entity.FusionQuery) ([]entity.DbFusion, *entity.Meta, error)
	DeleteFusion(ctx context.Context, id uint) error

	// 点赞与收藏
	LikeFusion(ctx context.Context, fusionID, userID uint) error
	UnlikeFusion(ctx context.Context, fusionID, userID uint) error
	FavoriteFusion(ctx context.Context, fusionID, userID uint) error
	UnfavoriteFusion(ctx context.Context, fusionID, userID uint) error
	FusionReactionStats(ctx context.Context, fusionIDs []uint, viewerID uint) (map[uint]entity.FusionReactionStats, error)

	// 积分账本
	CreateCreditEntry(ctx context.Context, entry *entity.DbCreditLedgerEntry) error
	CreditBalance(ctx context.Context, userID uint) (int64, error)
	ListCreditEntries(ctx context.Context, userID uint, params *entity.BaseParams) ([]entity.DbCreditLedgerEntry, *entity.Meta, error)

	// 宝可梦图鉴
	CreatePokemon(ctx context.Context, pokemon *entity.DbPokemon) error
	UpdatePokemon(ctx context.Context, id uint, updates entity.PokemonUpdates) error
	DeletePokemon(ctx context.Context, id uint) error
	GetPokemon(ctx context.Context, id uint) (*entity.DbPokemon, error)
	GetPokemonByName(ctx context.Context, name string) (*entity.DbPokemon, error)
	ListPokemons(ctx context.Context, includeInactive bool) ([]entity.DbPokemon, error)
	CountPokemons(ctx context.Context) (int64, error)
}
