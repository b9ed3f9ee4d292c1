package app

import (
	"context"
)

// Tasks lists every task the project's active languages publish,
// grouped per language in activation order.
func (s Service) Tasks(ctx context.Context, req TasksRequest) (TasksResult, error) {
	project, active, err := s.loadProject(ctx, req.ProjectPath)
	if err != nil {
		return TasksResult{}, err
	}

	result := TasksResult{Project: project}
	for _, language := range active.All() {
		result.Languages = append(result.Languages, LanguageTasks{
			Language: language.Name(),
			Tasks:    language.ListTasks(),
		})
	}
	return result, nil
}
