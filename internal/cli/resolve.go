package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskforge/internal/app"
)

type resolveOptions struct {
	Project string
	Task    string
	Workers int
}

func newResolveCommand() *cobra.Command {
	opts := resolveOptions{}
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the dependencies a task would receive",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runResolve(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Project, "project", "project.yaml", "Project descriptor path")
	cmd.Flags().StringVar(&opts.Task, "task", "", "Task to resolve dependencies for")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "Concurrent resolution workers")
	_ = viper.BindPFlag("project", cmd.Flags().Lookup("project"))
	_ = viper.BindPFlag("task", cmd.Flags().Lookup("task"))
	_ = viper.BindPFlag("workers", cmd.Flags().Lookup("workers"))
	return cmd
}

func runResolve(ctx context.Context, cmd *cobra.Command, opts resolveOptions) error {
	service := newAppService()
	result, err := service.Resolve(ctx, app.ResolveRequest{
		ProjectPath: resolveString(cmd, opts.Project, "project", "project"),
		Task:        resolveString(cmd, opts.Task, "task", "task"),
		Workers:     resolveInt(cmd, opts.Workers, "workers", "workers"),
	})
	if err != nil {
		return err
	}

	fmt.Printf("resolved %d dependencies for %s\n", len(result.Artifacts), result.Task.QualifiedName())
	for _, artifact := range result.Artifacts {
		fmt.Printf("%s (%s): %s\n", artifact.Dependency, artifact.Status, artifact.Path)
	}
	return nil
}

func resolveInt(cmd *cobra.Command, value int, key string, flagName string) int {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetInt(key)
}
