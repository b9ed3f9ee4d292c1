package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"taskforge/internal/policies"
	"taskforge/internal/types"
)

// ConflictResolver arbitrates between competing resolved versions of the
// same logical dependency. The reduction is pairwise against a running
// winner; version comparison is commutative, so concurrent discovery
// order never changes the surviving version.
type ConflictResolver struct {
	Policy policies.ConflictPolicy
}

func NewConflictResolver(policy policies.ConflictPolicy) ConflictResolver {
	return ConflictResolver{Policy: policy}
}

// Resolve picks exactly one surviving version for the record, or fails
// with a version conflict error naming both versions and the provenance
// paths they were discovered through.
func (r ConflictResolver) Resolve(ctx context.Context, record types.ConflictRecord) (types.ConflictCandidate, error) {
	if len(record.Candidates) == 0 {
		return types.ConflictCandidate{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("conflict record for %s has no candidates", record.ID))
	}
	winner := record.Candidates[0]
	for _, challenger := range record.Candidates[1:] {
		if challenger.Version == winner.Version {
			continue
		}
		next, err := r.settle(ctx, record.ID, winner, challenger)
		if err != nil {
			return types.ConflictCandidate{}, err
		}
		winner = next
	}
	return winner, nil
}

// settle arbitrates one winner/challenger pair under the configured or
// default policy.
func (r ConflictResolver) settle(ctx context.Context, id string, winner types.ConflictCandidate, challenger types.ConflictCandidate) (types.ConflictCandidate, error) {
	winnerVersion, err := ParseVersion(winner.Version)
	if err != nil {
		return types.ConflictCandidate{}, err
	}
	challengerVersion, err := ParseVersion(challenger.Version)
	if err != nil {
		return types.ConflictCandidate{}, err
	}

	errorDefault := !winnerVersion.SameMajorMinor(challengerVersion)
	override := r.Policy.For(id, errorDefault)

	if override.Action == types.ConflictActionError {
		return types.ConflictCandidate{}, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf(
				"version conflict: %s is required at both %s (via %s) and %s (via %s)",
				id,
				winner.Version, provenance(winner),
				challenger.Version, provenance(challenger),
			))
	}

	comparison := winnerVersion.Compare(challengerVersion)
	keepWinner := comparison > 0
	if override.Action == types.ConflictActionOlder {
		keepWinner = comparison < 0
	}

	kept, dropped := winner, challenger
	if !keepWinner {
		kept, dropped = challenger, winner
	}
	if override.Warn {
		log.Ctx(ctx).Warn().
			Str("dependency", id).
			Str("kept", kept.Version).
			Str("dropped", dropped.Version).
			Msgf("favoring %s version %s over %s of %s", override.Action, kept.Version, dropped.Version, id)
	}
	return kept, nil
}

func provenance(candidate types.ConflictCandidate) string {
	if len(candidate.Provenance) == 0 {
		return "the project descriptor"
	}
	return strings.Join(candidate.Provenance, " -> ")
}
