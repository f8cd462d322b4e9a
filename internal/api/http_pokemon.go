package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"pokefusion/internal/entity"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ListPokemons 图鉴列表。普通用户只看到启用的条目，管理员可带 include_inactive。
func (h *HTTPHandler) ListPokemons(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "authentication required")
		return
	}

	includeInactive := requestUser.IsAdmin() && parseBoolQuery(c.Query("include_inactive"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	pokemons, err := h.repo.ListPokemons(ctx, includeInactive)
	if err != nil {
		logrus.WithError(err).Error("failed to list pokemons")
		InternalError(c, "failed to load pokemon catalogue")
		return
	}

	c.JSON(http.StatusOK, entity.PokemonListResponse{Pokemons: pokemons})
}

// CreatePokemon 管理员新增图鉴条目。
func (h *HTTPHandler) CreatePokemon(c *gin.Context) {
	var req entity.PokemonCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		MissingField(c, "name")
		return
	}
	if req.Number <= 0 {
		BadRequest(c, ErrCodeInvalidRequest, "number must be positive")
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	pokemon := &entity.DbPokemon{
		Number:    req.Number,
		Name:      name,
		SpriteURL: strings.TrimSpace(req.SpriteURL),
		IsActive:  isActive,
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.repo.CreatePokemon(ctx, pokemon); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			BadRequest(c, ErrCodeInvalidRequest, "pokemon number or name already exists")
			return
		}
		logrus.WithError(err).Error("failed to create pokemon")
		InternalError(c, "failed to create pokemon")
		return
	}

	c.JSON(http.StatusCreated, pokemon)
}

// UpdatePokemon 管理员更新图鉴条目。
func (h *HTTPHandler) UpdatePokemon(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req entity.PokemonUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	var updates entity.PokemonUpdates

	if req.Number != nil {
		if *req.Number <= 0 {
			BadRequest(c, ErrCodeInvalidRequest, "number must be positive")
			return
		}
		updates.Number = req.Number
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			BadRequest(c, ErrCodeInvalidRequest, "name must not be empty")
			return
		}
		updates.Name = &name
	}
	if req.SpriteURL != nil {
		spriteURL := strings.TrimSpace(*req.SpriteURL)
		updates.SpriteURL = &spriteURL
	}
	if req.IsActive != nil {
		updates.IsActive = req.IsActive
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	pokemon, err := h.repo.GetPokemon(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodePokemonNotFound, "pokemon not found")
			return
		}
		logrus.WithError(err).Error("failed to load pokemon for update")
		InternalError(c, "failed to update pokemon")
		return
	}

	if updates.IsEmpty() {
		c.JSON(http.StatusOK, pokemon)
		return
	}

	if err := h.repo.UpdatePokemon(ctx, id, updates); err != nil {
		logrus.WithError(err).WithField("pokemon_id", id).Error("failed to update pokemon")
		InternalError(c, "failed to update pokemon")
		return
	}

	updated, err := h.repo.GetPokemon(ctx, id)
	if err != nil {
		logrus.WithError(err).WithField("pokemon_id", id).Error("failed to reload pokemon after update")
		InternalError(c, "failed to load updated pokemon")
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeletePokemon 管理员删除图鉴条目。
func (h *HTTPHandler) DeletePokemon(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.repo.DeletePokemon(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodePokemonNotFound, "pokemon not found")
			return
		}
		logrus.WithError(err).WithField("pokemon_id", id).Error("failed to delete pokemon")
		InternalError(c, "failed to delete pokemon")
		return
	}

	c.Status(http.StatusNoContent)
}
