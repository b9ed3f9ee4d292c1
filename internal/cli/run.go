package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskforge/internal/app"
)

type runOptions struct {
	Project    string
	NoRequires bool
	Workers    int
}

func newRunCommand() *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "run [tasks...]",
		Short: "Plan and execute the requested tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), cmd, opts, args)
		},
	}
	cmd.Flags().StringVar(&opts.Project, "project", "project.yaml", "Project descriptor path")
	cmd.Flags().BoolVar(&opts.NoRequires, "no-requires", false, "Run only the named tasks, without prerequisites")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "Concurrent resolution workers")
	_ = viper.BindPFlag("project", cmd.Flags().Lookup("project"))
	_ = viper.BindPFlag("no_requires", cmd.Flags().Lookup("no-requires"))
	_ = viper.BindPFlag("workers", cmd.Flags().Lookup("workers"))
	return cmd
}

func runRun(ctx context.Context, cmd *cobra.Command, opts runOptions, tasks []string) error {
	service := newAppService()
	result, err := service.Run(ctx, app.RunRequest{
		ProjectPath:       resolveString(cmd, opts.Project, "project", "project"),
		Tasks:             tasks,
		SkipPrerequisites: resolveBool(cmd, opts.NoRequires, "no_requires", "no-requires"),
		Workers:           resolveInt(cmd, opts.Workers, "workers", "workers"),
	})
	if err != nil {
		return err
	}

	fmt.Printf("executed %d of %d planned tasks\n", result.Executed, len(result.Plan.Entries))
	return nil
}
