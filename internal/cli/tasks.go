package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskforge/internal/app"
)

type tasksOptions struct {
	Project string
}

func newTasksCommand() *cobra.Command {
	opts := tasksOptions{}
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List the tasks the project's languages publish",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTasks(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Project, "project", "project.yaml", "Project descriptor path")
	_ = viper.BindPFlag("project", cmd.Flags().Lookup("project"))
	return cmd
}

func runTasks(ctx context.Context, cmd *cobra.Command, opts tasksOptions) error {
	service := newAppService()
	result, err := service.Tasks(ctx, app.TasksRequest{
		ProjectPath: resolveString(cmd, opts.Project, "project", "project"),
	})
	if err != nil {
		return err
	}

	for _, language := range result.Languages {
		fmt.Printf("%s:\n", language.Language)
		for _, task := range language.Tasks {
			marker := ""
			if task.Pseudo {
				marker = " (pseudo)"
			}
			fmt.Printf("    %s%s -- %s\n", task.Name, marker, task.Help)
		}
	}
	return nil
}
