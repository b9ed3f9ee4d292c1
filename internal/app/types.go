package app

import (
	"taskforge/internal/policies"
	"taskforge/internal/types"
)

type PlanRequest struct {
	ProjectPath       string
	Tasks             []string
	SkipPrerequisites bool
}

type PlanResult struct {
	Project types.Project
	Plan    types.ExecutionPlan
}

type ResolveRequest struct {
	ProjectPath string
	Task        string
	Workers     int
}

type ResolveResult struct {
	Project   types.Project
	Task      types.TaskDescriptor
	Artifacts []types.ResolvedArtifact
}

type RunRequest struct {
	ProjectPath       string
	Tasks             []string
	SkipPrerequisites bool
	Workers           int
}

type RunResult struct {
	Project  types.Project
	Plan     types.ExecutionPlan
	Executed int
}

type TasksRequest struct {
	ProjectPath string
}

type LanguageTasks struct {
	Language string
	Tasks    []types.TaskDescriptor
}

type TasksResult struct {
	Project   types.Project
	Languages []LanguageTasks
}

func policiesFor(project types.Project) policies.ConflictPolicy {
	return policies.NewConflictPolicy(project.Conflicts)
}

func filePolicyFor(project types.Project) policies.FilePolicy {
	return policies.NewFilePolicy(project.Conditions.Files)
}
