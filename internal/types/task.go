package types

import "strings"

// TaskDescriptor describes a task a language publishes: its name, whether
// it is a pseudo-task (no work of its own, exists only to trigger its
// prerequisites) and the names of the tasks it requires, in declaration
// order. Descriptors are immutable once published.
type TaskDescriptor struct {
	Language string
	Name     string
	Pseudo   bool
	Requires []string
	Help     string
}

// QualifiedName returns the language-qualified form of the task name.
func (t TaskDescriptor) QualifiedName() string {
	return t.Language + "::" + t.Name
}

// PlanEntry is one step of an execution plan.
type PlanEntry struct {
	Language string
	Task     string
	Pseudo   bool
}

// ExecutionPlan is the ordered set of tasks a single invocation will
// execute. Every entry's prerequisites appear earlier in the plan unless
// prerequisites were explicitly skipped. Warning carries a non-fatal
// condition worth surfacing to the user, such as a plan that does no work.
type ExecutionPlan struct {
	Entries []PlanEntry
	Warning string
}

// IsNoOp reports whether executing the plan would perform no actual work,
// which happens when every entry is a pseudo-task.
func (p ExecutionPlan) IsNoOp() bool {
	for _, entry := range p.Entries {
		if !entry.Pseudo {
			return false
		}
	}
	return true
}

// ParseTaskRef splits a task reference of the form "language::task" into
// its parts. A bare "task" (or the equivalent "::task") returns an empty
// language, meaning the language must be inferred from the registry.
func ParseTaskRef(reference string) (language string, task string) {
	parts := strings.SplitN(reference, "::", 2)
	if len(parts) == 2 {
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}
	return "", strings.TrimSpace(parts[0])
}
