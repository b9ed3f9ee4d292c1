package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDependenciesForFiltersByScope(t *testing.T) {
	project := Project{
		Dependencies: map[string]DependencySpec{
			"lib-a": {Spec: "remote:org:lib-a:1.0.0", Scope: ScopeList{"test"}},
			"lib-b": {Spec: "remote:org:lib-b:1.0.0", Scope: ScopeList{"compile", "test"}},
			"lib-c": {Spec: "remote:org:lib-c:1.0.0", Scope: ScopeList{"doc"}},
		},
		DependencyOrder: []string{"lib-a", "lib-b", "lib-c"},
	}

	deps, err := project.DependenciesFor("test")
	require.NoError(t, err)
	require.Len(t, deps, 2)
	assert.Equal(t, "lib-a", deps[0].Name, "declaration order is preserved")
	assert.Equal(t, "lib-b", deps[1].Name)
}

func TestDependenciesForPropagatesBadSpec(t *testing.T) {
	project := Project{
		Dependencies: map[string]DependencySpec{
			"lib": {Spec: "remote:a:b:c:d:e"},
		},
		DependencyOrder: []string{"lib"},
	}

	_, err := project.DependenciesFor("test")
	require.Error(t, err)
}
