package model

import (
	"context"
	"errors"
	"fmt"

	"pokefusion/internal/entity"

	"gorm.io/gorm"
)

const pokeSpriteBaseURL = "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon/official-artwork"

type pokemonSeed struct {
	Number int
	Name   string
}

// 默认图鉴：经典第一世代中最常被融合的一批。
var defaultPokemonSeeds = []pokemonSeed{
	{1, "Bulbasaur"},
	{4, "Charmander"},
	{6, "Charizard"},
	{7, "Squirtle"},
	{9, "Blastoise"},
	{12, "Butterfree"},
	{25, "Pikachu"},
	{26, "Raichu"},
	{37, "Vulpix"},
	{39, "Jigglypuff"},
	{52, "Meowth"},
	{54, "Psyduck"},
	{59, "Arcanine"},
	{65, "Alakazam"},
	{68, "Machamp"},
	{78, "Rapidash"},
	{83, "Farfetch'd"},
	{91, "Cloyster"},
	{94, "Gengar"},
	{95, "Onix"},
	{104, "Cubone"},
	{112, "Rhydon"},
	{115, "Kangaskhan"},
	{121, "Starmie"},
	{130, "Gyarados"},
	{131, "Lapras"},
	{133, "Eevee"},
	{134, "Vaporeon"},
	{143, "Snorlax"},
	{149, "Dragonite"},
	{150, "Mewtwo"},
	{151, "Mew"},
}

// SeedDefaultPokemons ensures the starter catalogue exists in the database.
// Entries already present (by name) are left untouched so admin edits survive.
func SeedDefaultPokemons(ctx context.Context, repo Repository) error {
	if repo == nil {
		return nil
	}

	for _, seed := range defaultPokemonSeeds {
		_, err := repo.GetPokemonByName(ctx, seed.Name)
		switch {
		case err == nil:
			continue
		case errors.Is(err, gorm.ErrRecordNotFound):
			pokemon := entity.DbPokemon{
				Number:    seed.Number,
				Name:      seed.Name,
				SpriteURL: fmt.Sprintf("%s/%d.png", pokeSpriteBaseURL, seed.Number),
				IsActive:  true,
			}
			if err := repo.CreatePokemon(ctx, &pokemon); err != nil {
				return err
			}
		default:
			return err
		}
	}
	return nil
}
