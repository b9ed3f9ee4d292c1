package app

import (
	"context"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"taskforge/internal/core"
)

// Plan loads the project and expands the requested tasks into an
// ordered execution plan without executing anything.
func (s Service) Plan(ctx context.Context, req PlanRequest) (PlanResult, error) {
	if len(req.Tasks) == 0 {
		return PlanResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("at least one task is required to build a plan")
	}
	project, active, err := s.loadProject(ctx, req.ProjectPath)
	if err != nil {
		return PlanResult{}, err
	}

	plan, err := core.NewPlanResolver(active).Plan(ctx, req.Tasks, req.SkipPrerequisites)
	if err != nil {
		return PlanResult{}, err
	}
	log.Ctx(ctx).Debug().
		Str("project", project.Name).
		Int("entries", len(plan.Entries)).
		Msg("plan built")
	return PlanResult{Project: project, Plan: plan}, nil
}
