package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/ericfisherdev/rollcall/internal/domain/model"
)

// Catalog is the loaded games catalog with name lookup. It is immutable
// after load.
type Catalog struct {
	games  []model.Game
	byName map[string]model.Game
}

// gamesFile mirrors the TOML catalog layout.
type gamesFile struct {
	Games []gameEntry `toml:"games"`
}

type gameEntry struct {
	Name          string `toml:"name"`
	DisplayName   string `toml:"display_name"`
	BaseURL       string `toml:"base_url"`
	APIBaseURL    string `toml:"api_base_url"`
	OAuthURL      string `toml:"oauth_url"`
	StatusPath    string `toml:"status_path"`
	ClaimPath     string `toml:"claim_path"`
	RequiredToken string `toml:"required_token"`
	AppCode       string `toml:"app_code"`
	GameID        string `toml:"game_id"`
}

// LoadGames parses and validates the games catalog file. The catalog is the
// single source of supported games; the database games table is synced from
// it at startup and never edited directly.
func LoadGames(path string) (*Catalog, error) {
	var file gamesFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("read games catalog %s: %w", path, err)
	}
	if len(file.Games) == 0 {
		return nil, fmt.Errorf("games catalog %s defines no games", path)
	}

	cat := &Catalog{byName: make(map[string]model.Game, len(file.Games))}
	for _, entry := range file.Games {
		game, err := entry.toModel()
		if err != nil {
			return nil, fmt.Errorf("games catalog %s: %w", path, err)
		}
		if _, dup := cat.byName[game.Name]; dup {
			return nil, fmt.Errorf("games catalog %s: duplicate game %q", path, game.Name)
		}
		cat.byName[game.Name] = game
		cat.games = append(cat.games, game)
	}
	return cat, nil
}

func (e gameEntry) toModel() (model.Game, error) {
	required := map[string]string{
		"name":         e.Name,
		"display_name": e.DisplayName,
		"base_url":     e.BaseURL,
		"api_base_url": e.APIBaseURL,
		"oauth_url":    e.OAuthURL,
		"status_path":  e.StatusPath,
		"claim_path":   e.ClaimPath,
		"app_code":     e.AppCode,
		"game_id":      e.GameID,
	}
	for field, value := range required {
		if value == "" {
			return model.Game{}, fmt.Errorf("game %q is missing %s", e.Name, field)
		}
	}

	kind := model.TokenKind(e.RequiredToken)
	switch kind {
	case "":
		kind = model.TokenSession
	case model.TokenSession, model.TokenCredential:
	default:
		return model.Game{}, fmt.Errorf("game %q has unknown required_token %q", e.Name, e.RequiredToken)
	}

	return model.Game{
		Name:          e.Name,
		DisplayName:   e.DisplayName,
		BaseURL:       e.BaseURL,
		APIBaseURL:    e.APIBaseURL,
		OAuthURL:      e.OAuthURL,
		StatusPath:    e.StatusPath,
		ClaimPath:     e.ClaimPath,
		RequiredToken: kind,
		AppCode:       e.AppCode,
		GameID:        e.GameID,
	}, nil
}

// Get returns the game with the given name.
func (c *Catalog) Get(name string) (model.Game, bool) {
	game, ok := c.byName[name]
	return game, ok
}

// All returns the games in catalog order.
func (c *Catalog) All() []model.Game {
	return c.games
}

// Sole returns the only game in the catalog, if there is exactly one.
// Commands use it to make --game optional for single-game installs.
func (c *Catalog) Sole() (model.Game, bool) {
	if len(c.games) == 1 {
		return c.games[0], true
	}
	return model.Game{}, false
}
