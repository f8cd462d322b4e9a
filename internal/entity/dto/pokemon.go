package dto

import "pokefusion/internal/entity/db"

// PokemonListResponse lists catalogue entries for the fusion picker.
type PokemonListResponse struct {
	Pokemons []db.Pokemon `json:"pokemons"`
}

// PokemonCreateRequest is the admin payload for adding a catalogue entry.
type PokemonCreateRequest struct {
	Number    int    `json:"number" binding:"required"`
	Name      string `json:"name" binding:"required"`
	SpriteURL string `json:"sprite_url" binding:"required"`
	IsActive  *bool  `json:"is_active"`
}

// PokemonUpdateRequest is the admin payload for updating a catalogue entry.
type PokemonUpdateRequest struct {
	Number    *int    `json:"number,omitempty"`
	Name      *string `json:"name,omitempty"`
	SpriteURL *string `json:"sprite_url,omitempty"`
	IsActive  *bool   `json:"is_active,omitempty"`
}
