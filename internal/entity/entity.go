package entity

// Re-export the split entity sub-packages under the historical entity names so
// call sites can keep using a single import.

import (
	"pokefusion/internal/entity/common"
	"pokefusion/internal/entity/db"
	"pokefusion/internal/entity/dto"
)

// Type aliases for common types
type StringArray = common.StringArray
type JSONMap = common.JSONMap
type Response = common.Response
type Meta = common.Meta
type BaseParams = common.BaseParams

// Database entities
type DbUser = db.User
type DbFusion = db.Fusion
type DbCreditLedgerEntry = db.CreditLedgerEntry
type DbFusionLike = db.FusionLike
type DbFusionFavorite = db.FusionFavorite
type DbPokemon = db.Pokemon
type StageLog = db.StageLog
type StageLogEntry = db.StageLogEntry

const (
	UserRoleSuperAdmin = db.UserRoleSuperAdmin
	UserRoleAdmin      = db.UserRoleAdmin
	UserRoleUser       = db.UserRoleUser

	FusionStatusPending   = db.FusionStatusPending
	FusionStatusSucceeded = db.FusionStatusSucceeded
	FusionStatusFallback  = db.FusionStatusFallback

	CreditReasonSignup     = db.CreditReasonSignup
	CreditReasonAdminGrant = db.CreditReasonAdminGrant
	CreditReasonGeneration = db.CreditReasonGeneration
)

// DTOs
type AuthStatusResponse = dto.AuthStatusResponse
type AuthLoginRequest = dto.AuthLoginRequest
type AuthRegisterRequest = dto.AuthRegisterRequest
type AuthResponse = dto.AuthResponse

type UserSummary = dto.UserSummary
type UserQuery = dto.UserQuery
type UserCreateRequest = dto.UserCreateRequest
type UserUpdateRequest = dto.UserUpdateRequest
type UserListResponse = dto.UserListResponse

type GenerateFusionRequest = dto.GenerateFusionRequest
type GenerateFusionResponse = dto.GenerateFusionResponse
type FusionEvent = dto.FusionEvent
type FusionStatusResponse = dto.FusionStatusResponse
type FusionImage = dto.FusionImage
type FusionItem = dto.FusionItem
type FusionQuery = dto.FusionQuery
type FusionReactionStats = dto.FusionReactionStats
type FusionListResponse = dto.FusionListResponse
type FusionDetailResponse = dto.FusionDetailResponse

type CreditBalanceResponse = dto.CreditBalanceResponse
type CreditLedgerItem = dto.CreditLedgerItem
type CreditLedgerResponse = dto.CreditLedgerResponse
type CreditGrantRequest = dto.CreditGrantRequest

type PokemonListResponse = dto.PokemonListResponse
type PokemonCreateRequest = dto.PokemonCreateRequest
type PokemonUpdateRequest = dto.PokemonUpdateRequest
