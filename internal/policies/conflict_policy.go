package policies

import "taskforge/internal/types"

// ConflictPolicy selects how a version conflict for a dependency ID is
// settled. Explicit overrides from the project descriptor win; without
// one, the caller says whether the versions are far enough apart that
// the default must be a hard error (major or minor difference) or may
// recover by favoring the newer version with a warning (micro or tag
// difference only).
type ConflictPolicy struct {
	overrides map[string]types.ConflictOverride
}

var defaultError = types.ConflictOverride{Action: types.ConflictActionError}
var defaultNewerWarn = types.ConflictOverride{Action: types.ConflictActionNewer, Warn: true}

func NewConflictPolicy(overrides map[string]types.ConflictOverride) ConflictPolicy {
	normalized := make(map[string]types.ConflictOverride, len(overrides))
	for id, override := range overrides {
		if override.Action == "" {
			override.Action = types.ConflictActionError
		}
		normalized[id] = override
	}
	return ConflictPolicy{overrides: normalized}
}

// For returns the override for a dependency ID, falling back to the
// distance-based default when none was configured.
func (p ConflictPolicy) For(dependencyID string, errorDefault bool) types.ConflictOverride {
	if override, ok := p.overrides[dependencyID]; ok {
		return override
	}
	if errorDefault {
		return defaultError
	}
	return defaultNewerWarn
}

// HasOverride reports whether a dependency ID has an explicit override.
func (p ConflictPolicy) HasOverride(dependencyID string) bool {
	_, ok := p.overrides[dependencyID]
	return ok
}
