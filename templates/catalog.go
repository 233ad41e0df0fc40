// Package templates holds the read-only per-game-type defaults used to seed
// automated tournaments.
package templates

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"tournament-engine/models"
)

type Template struct {
	GameType           models.GameType
	Name               string
	Description        string
	MinParticipants    int
	MaxParticipants    int
	EntryFee           float64
	PrizeFirst         float64
	PrizeSecond        float64
	PrizeThird         float64
	AutoStartThreshold float64
	Rules              []string
}

var catalog = map[models.GameType]Template{
	models.GameSolo: {
		GameType:           models.GameSolo,
		Name:               "Solo Showdown",
		Description:        "Every player for themselves. Highest placement points win.",
		MinParticipants:    10,
		MaxParticipants:    50,
		EntryFee:           0,
		PrizeFirst:         500,
		PrizeSecond:        300,
		PrizeThird:         200,
		AutoStartThreshold: 0.8,
		Rules: []string{
			"Third-person perspective",
			"No teaming with other players",
			"Placement points plus one point per elimination",
		},
	},
	models.GameDuo: {
		GameType:           models.GameDuo,
		Name:               "Duo Clash",
		Description:        "Teams of two on a shared squad map.",
		MinParticipants:    10,
		MaxParticipants:    50,
		EntryFee:           10,
		PrizeFirst:         800,
		PrizeSecond:        500,
		PrizeThird:         300,
		AutoStartThreshold: 0.8,
		Rules: []string{
			"Both players must check in before the deadline",
			"Substitutes are not allowed once live",
		},
	},
	models.GameSquad: {
		GameType:           models.GameSquad,
		Name:               "Squad Siege",
		Description:        "Four-player squads, three rounds, cumulative points.",
		MinParticipants:    8,
		MaxParticipants:    48,
		EntryFee:           20,
		PrizeFirst:         1500,
		PrizeSecond:        900,
		PrizeThird:         600,
		AutoStartThreshold: 0.75,
		Rules: []string{
			"Squad captain registers for the team",
			"Three rounds on rotating maps",
			"Ties broken by total eliminations",
		},
	},
	models.GameClashSquad: {
		GameType:           models.GameClashSquad,
		Name:               "Clash Squad Arena",
		Description:        "Round-based 4v4 elimination, best of seven rounds.",
		MinParticipants:    8,
		MaxParticipants:    32,
		EntryFee:           15,
		PrizeFirst:         1000,
		PrizeSecond:        600,
		PrizeThird:         400,
		AutoStartThreshold: 0.8,
		Rules: []string{
			"Best of seven rounds",
			"Weapon store unlocks after round one",
			"Disconnects over two minutes forfeit the round",
		},
	},
}

// Resolve returns a copy of the template for gameType.
func Resolve(gameType models.GameType) (Template, error) {
	tpl, ok := catalog[gameType]
	if !ok {
		return Template{}, fmt.Errorf("%w: %q", models.ErrUnknownGameType, gameType)
	}
	tpl.Rules = append([]string(nil), tpl.Rules...)
	return tpl, nil
}

// GameTypes is the order generation walks the catalog in.
func GameTypes() []models.GameType {
	return append([]models.GameType(nil), models.GameTypes...)
}

// Resolver is satisfied by Catalog; generation takes it so tests can inject
// a broken entry.
type Resolver interface {
	Resolve(gameType models.GameType) (Template, error)
}

// Catalog adapts the package-level catalog to Resolver.
type Catalog struct{}

func (Catalog) Resolve(gameType models.GameType) (Template, error) {
	return Resolve(gameType)
}

// DisplayName turns "clash_squad" into "Clash Squad". Casers are stateful, so
// each call builds its own.
func DisplayName(gameType models.GameType) string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(gameType), "_", " "))
}
