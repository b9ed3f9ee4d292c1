package app

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"taskforge/internal/core"
	"taskforge/internal/ports"
)

// Run builds the execution plan for the requested tasks and executes
// its entries in order. Pseudo-tasks are placed but perform no work. A
// failing task aborts the run; the entries after it do not execute.
func (s Service) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	if len(req.Tasks) == 0 {
		return RunResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("at least one task is required to run")
	}
	project, active, err := s.loadProject(ctx, req.ProjectPath)
	if err != nil {
		return RunResult{}, err
	}

	plan, err := core.NewPlanResolver(active).Plan(ctx, req.Tasks, req.SkipPrerequisites)
	if err != nil {
		return RunResult{}, err
	}

	result := RunResult{Project: project, Plan: plan}
	for _, entry := range plan.Entries {
		logger := log.Ctx(ctx).With().
			Str("language", entry.Language).
			Str("task", entry.Task).
			Logger()
		if entry.Pseudo {
			logger.Info().Msg("pseudo-task, nothing to execute")
			continue
		}
		logger.Info().Msg("running task")

		language, ok := active.Get(entry.Language)
		if !ok {
			return result, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("there is no language named %q", entry.Language))
		}
		runner, ok := language.(ports.TaskRunnerPort)
		if !ok {
			return result, errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg(fmt.Sprintf("the %s language does not provide a means of executing tasks", entry.Language))
		}

		declared, err := project.DependenciesFor(entry.Task)
		if err != nil {
			return result, err
		}
		resolver := s.newResolver(project, language, req.Workers)
		artifacts, err := resolver.Resolve(ctx, entry.Task, declared)
		if err != nil {
			return result, err
		}

		if err := runner.RunTask(ctx, project, entry.Task, artifacts); err != nil {
			return result, err
		}
		result.Executed++
	}
	return result, nil
}
