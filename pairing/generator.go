package pairing

import (
	"context"

	"github.com/cuelane/pool-league-system/models"
	"github.com/cuelane/pool-league-system/repositories"
)

// Generator creates the matches for one tournament level. It is called
// inside the level-initialization transaction and must write through
// the given executor so a failure rolls back the whole initialization.
type Generator interface {
	Initialize(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, level models.TournamentLevel) (int, error)

	GetName() string
}
