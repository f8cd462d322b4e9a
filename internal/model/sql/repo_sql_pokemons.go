package sql

import (
	"context"
	"fmt"
	"strings"

	"pokefusion/internal/entity"
)

// CreatePokemon adds a catalogue entry.
func (r *GormRepository) CreatePokemon(ctx context.Context, pokemon *entity.DbPokemon) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if pokemon == nil {
		return fmt.Errorf("pokemon is nil")
	}
	return r.db.WithContext(ctx).Create(pokemon).Error
}

// UpdatePokemon updates a catalogue entry.
func (r *GormRepository) UpdatePokemon(ctx context.Context, id uint, updates entity.PokemonUpdates) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid pokemon id")
	}
	if updates.IsEmpty() {
		return nil
	}
	return r.db.WithContext(ctx).Model(&entity.DbPokemon{}).Where("id = ?", id).Updates(updates.ToMap()).Error
}

// DeletePokemon removes a catalogue entry.
func (r *GormRepository) DeletePokemon(ctx context.Context, id uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid pokemon id")
	}
	return r.db.WithContext(ctx).Delete(&entity.DbPokemon{}, id).Error
}

// GetPokemon loads a catalogue entry by ID.
func (r *GormRepository) GetPokemon(ctx context.Context, id uint) (*entity.DbPokemon, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return nil, fmt.Errorf("invalid pokemon id")
	}
	var pokemon entity.DbPokemon
	if err := r.db.WithContext(ctx).First(&pokemon, id).Error; err != nil {
		return nil, err
	}
	return &pokemon, nil
}

// GetPokemonByName loads a catalogue entry by name, case-insensitive.
func (r *GormRepository) GetPokemonByName(ctx context.Context, name string) (*entity.DbPokemon, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, fmt.Errorf("name is empty")
	}
	var pokemon entity.DbPokemon
	if err := r.db.WithContext(ctx).Where("LOWER(name) = ?", strings.ToLower(trimmed)).First(&pokemon).Error; err != nil {
		return nil, err
	}
	return &pokemon, nil
}

// ListPokemons returns catalogue entries ordered by number.
func (r *GormRepository) ListPokemons(ctx context.Context, includeInactive bool) ([]entity.DbPokemon, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	query := r.db.WithContext(ctx).Model(&entity.DbPokemon{})
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	var pokemons []entity.DbPokemon
	if err := query.Order("number ASC").Find(&pokemons).Error; err != nil {
		return nil, err
	}
	return pokemons, nil
}

// CountPokemons returns the total number of catalogue entries.
func (r *GormRepository) CountPokemons(ctx context.Context) (int64, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("repository not initialised")
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&entity.DbPokemon{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
