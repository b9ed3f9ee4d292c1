package app

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"taskforge/internal/core"
)

// Resolve produces the conflict-resolved artifact set one task would
// receive, without running the task.
func (s Service) Resolve(ctx context.Context, req ResolveRequest) (ResolveResult, error) {
	if req.Task == "" {
		return ResolveResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("a task is required to resolve dependencies")
	}
	project, active, err := s.loadProject(ctx, req.ProjectPath)
	if err != nil {
		return ResolveResult{}, err
	}

	descriptor, err := core.NewPlanResolver(active).Find(req.Task)
	if err != nil {
		return ResolveResult{}, err
	}
	language, ok := active.Get(descriptor.Language)
	if !ok {
		return ResolveResult{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("there is no language named %q", descriptor.Language))
	}
	declared, err := project.DependenciesFor(descriptor.Name)
	if err != nil {
		return ResolveResult{}, err
	}

	resolver := s.newResolver(project, language, req.Workers)
	artifacts, err := resolver.Resolve(ctx, descriptor.Name, declared)
	if err != nil {
		return ResolveResult{}, err
	}
	log.Ctx(ctx).Debug().
		Str("task", descriptor.QualifiedName()).
		Int("artifacts", len(artifacts)).
		Msg("dependencies resolved for task")
	return ResolveResult{Project: project, Task: descriptor, Artifacts: artifacts}, nil
}
