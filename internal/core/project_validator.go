package core

import (
	"context"
	"fmt"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"taskforge/internal/types"
)

// ProjectValidator checks a loaded project descriptor before any plan
// or resolution work starts, so configuration errors surface up front
// rather than mid-build.
type ProjectValidator struct{}

var validConflictActions = map[types.ConflictAction]struct{}{
	types.ConflictActionError: {},
	types.ConflictActionNewer: {},
	types.ConflictActionOlder: {},
}

var validSignaturePolicies = map[types.SignaturePolicy]struct{}{
	types.SignatureIgnore: {},
	types.SignatureWarn:   {},
	types.SignatureError:  {},
}

func NewProjectValidator() ProjectValidator {
	return ProjectValidator{}
}

func (v ProjectValidator) ValidateProject(ctx context.Context, project types.Project) error {
	assert.NotEmpty(ctx, project.Name, "project name must be set")
	assert.NotEmpty(ctx, project.Version, "project version must be set")
	if len(project.Languages) == 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("the project must declare at least one language")
	}
	if !ValidVersion(project.Version) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("the project version %q is not a valid version", project.Version))
	}
	for _, key := range project.DependencyOrder {
		if err := validateDependency(key, project.Dependencies[key]); err != nil {
			return err
		}
	}
	for id, override := range project.Conflicts {
		if override.Action == "" {
			continue
		}
		if _, ok := validConflictActions[override.Action]; !ok {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("unknown conflict action %q for %s", override.Action, id))
		}
	}
	for name, condition := range project.Conditions.Files {
		if condition.Signature == "" {
			continue
		}
		if _, ok := validSignaturePolicies[condition.Signature]; !ok {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("unknown signature policy %q for file %s", condition.Signature, name))
		}
	}
	log.Ctx(ctx).Debug().Str("project", project.Name).Msg("project descriptor validated")
	return nil
}

func validateDependency(key string, spec types.DependencySpec) error {
	dep, err := types.NewDependency(key, spec)
	if err != nil {
		return err
	}
	if !ValidVersion(dep.Version) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("the version %q is not a valid version for the %s dependency", dep.Version, key))
	}
	if len(dep.Scope) == 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("the %s dependency must declare a scope", key))
	}
	return nil
}
