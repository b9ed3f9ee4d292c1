package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskforge/internal/app"
)

type planOptions struct {
	Project    string
	NoRequires bool
}

func newPlanCommand() *cobra.Command {
	opts := planOptions{}
	cmd := &cobra.Command{
		Use:   "plan [tasks...]",
		Short: "Show the execution plan for the requested tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd.Context(), cmd, opts, args)
		},
	}
	cmd.Flags().StringVar(&opts.Project, "project", "project.yaml", "Project descriptor path")
	cmd.Flags().BoolVar(&opts.NoRequires, "no-requires", false, "Plan only the named tasks, without prerequisites")
	_ = viper.BindPFlag("project", cmd.Flags().Lookup("project"))
	_ = viper.BindPFlag("no_requires", cmd.Flags().Lookup("no-requires"))
	return cmd
}

func runPlan(ctx context.Context, cmd *cobra.Command, opts planOptions, tasks []string) error {
	service := newAppService()
	result, err := service.Plan(ctx, app.PlanRequest{
		ProjectPath:       resolveString(cmd, opts.Project, "project", "project"),
		Tasks:             tasks,
		SkipPrerequisites: resolveBool(cmd, opts.NoRequires, "no_requires", "no-requires"),
	})
	if err != nil {
		return err
	}

	for _, entry := range result.Plan.Entries {
		marker := ""
		if entry.Pseudo {
			marker = " (pseudo)"
		}
		fmt.Printf("%s::%s%s\n", entry.Language, entry.Task, marker)
	}
	if result.Plan.Warning != "" {
		fmt.Printf("warning: %s\n", result.Plan.Warning)
	}
	return nil
}

func resolveString(cmd *cobra.Command, value string, key string, flagName string) string {
	if cmd == nil {
		if value != "" {
			return value
		}
		return viper.GetString(key)
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetString(key)
}

func resolveBool(cmd *cobra.Command, value bool, key string, flagName string) bool {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetBool(key)
}

func flagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil || strings.TrimSpace(name) == "" {
		return false
	}
	if flag := cmd.Flags().Lookup(name); flag != nil {
		return flag.Changed
	}
	if flag := cmd.PersistentFlags().Lookup(name); flag != nil {
		return flag.Changed
	}
	return false
}
