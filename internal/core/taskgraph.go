package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"taskforge/internal/ports"
	"taskforge/internal/types"
)

// PlanResolver turns requested task names into a deterministic,
// cycle-free execution plan over the task descriptors the active
// languages publish. The graph walk is pure in-memory computation.
type PlanResolver struct {
	Languages ports.LanguageRegistryPort
}

func NewPlanResolver(registry ports.LanguageRegistryPort) PlanResolver {
	return PlanResolver{Languages: registry}
}

// taskIndex is the flattened view of every task the active languages
// publish, with bare-name ambiguity tracked so "task" references can be
// rejected when two languages publish the same name.
type taskIndex struct {
	languages []string
	byRef     map[string]types.TaskDescriptor
	nameOwner map[string]string
	ambiguous map[string][]string
}

// Plan expands the requested task references into an ordered execution
// plan. Each task's prerequisites are placed before it, already placed
// tasks are not scheduled again, and a prerequisite cycle is a fatal
// configuration error. With skipPrerequisites set the plan contains
// exactly the requested tasks; if that leaves only pseudo-tasks the plan
// accomplishes nothing, which is surfaced as a warning rather than an
// error.
func (r PlanResolver) Plan(ctx context.Context, requested []string, skipPrerequisites bool) (types.ExecutionPlan, error) {
	index, err := r.buildIndex()
	if err != nil {
		return types.ExecutionPlan{}, err
	}

	var roots []types.TaskDescriptor
	for _, reference := range requested {
		descriptor, err := index.lookup(reference)
		if err != nil {
			return types.ExecutionPlan{}, err
		}
		roots = append(roots, descriptor)
	}

	plan := types.ExecutionPlan{}
	if skipPrerequisites {
		for _, descriptor := range roots {
			plan.Entries = append(plan.Entries, planEntry(descriptor))
		}
	} else {
		placed := map[string]struct{}{}
		for _, descriptor := range roots {
			if err := expand(index, descriptor, nil, placed, &plan.Entries); err != nil {
				return types.ExecutionPlan{}, err
			}
		}
	}

	if plan.IsNoOp() && len(plan.Entries) > 0 {
		plan.Warning = "the requested tasks are all pseudo-tasks; the plan accomplishes nothing"
		log.Ctx(ctx).Warn().Strs("tasks", requested).Msg(plan.Warning)
	}
	log.Ctx(ctx).Debug().Int("entries", len(plan.Entries)).Msg("execution plan resolved")
	return plan, nil
}

// Find resolves a single task reference to its descriptor without
// building a plan.
func (r PlanResolver) Find(reference string) (types.TaskDescriptor, error) {
	index, err := r.buildIndex()
	if err != nil {
		return types.TaskDescriptor{}, err
	}
	return index.lookup(reference)
}

// ListTasks returns every published task grouped per language, in
// registry order, for display when no task was requested.
func (r PlanResolver) ListTasks() [][]types.TaskDescriptor {
	var out [][]types.TaskDescriptor
	for _, language := range r.Languages.All() {
		tasks := language.ListTasks()
		if len(tasks) > 0 {
			out = append(out, tasks)
		}
	}
	return out
}

// expand places descriptor's prerequisites, then the descriptor itself,
// depth first. trail is the chain of qualified names currently being
// expanded; revisiting a member of the trail is a prerequisite cycle.
func expand(index taskIndex, descriptor types.TaskDescriptor, trail []string, placed map[string]struct{}, entries *[]types.PlanEntry) error {
	qualified := descriptor.QualifiedName()
	if _, done := placed[qualified]; done {
		return nil
	}
	for _, ancestor := range trail {
		if ancestor == qualified {
			chain := append(append([]string(nil), trail...), qualified)
			return errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg(fmt.Sprintf("prerequisite cycle detected: %s", strings.Join(chain, " -> ")))
		}
	}
	trail = append(trail, qualified)
	for _, required := range descriptor.Requires {
		prerequisite, err := index.lookupIn(descriptor.Language, required)
		if err != nil {
			return err
		}
		if err := expand(index, prerequisite, trail, placed, entries); err != nil {
			return err
		}
	}
	placed[qualified] = struct{}{}
	*entries = append(*entries, planEntry(descriptor))
	return nil
}

func planEntry(descriptor types.TaskDescriptor) types.PlanEntry {
	return types.PlanEntry{
		Language: descriptor.Language,
		Task:     descriptor.Name,
		Pseudo:   descriptor.Pseudo,
	}
}

func (r PlanResolver) buildIndex() (taskIndex, error) {
	index := taskIndex{
		byRef:     map[string]types.TaskDescriptor{},
		nameOwner: map[string]string{},
		ambiguous: map[string][]string{},
	}
	for _, language := range r.Languages.All() {
		index.languages = append(index.languages, language.Name())
		for _, descriptor := range language.ListTasks() {
			index.byRef[descriptor.QualifiedName()] = descriptor
			if owner, seen := index.nameOwner[descriptor.Name]; seen {
				if len(index.ambiguous[descriptor.Name]) == 0 {
					index.ambiguous[descriptor.Name] = []string{owner}
				}
				index.ambiguous[descriptor.Name] = append(index.ambiguous[descriptor.Name], descriptor.Language)
			} else {
				index.nameOwner[descriptor.Name] = descriptor.Language
			}
		}
	}
	if len(index.languages) == 0 {
		return taskIndex{}, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("no languages are active; nothing publishes tasks")
	}
	return index, nil
}

// lookup resolves a task reference, either "language::task" or a bare
// task name that must be unique across the active languages.
func (i taskIndex) lookup(reference string) (types.TaskDescriptor, error) {
	language, task := types.ParseTaskRef(reference)
	if language != "" {
		return i.lookupIn(language, task)
	}
	if sources, clash := i.ambiguous[task]; clash {
		return types.TaskDescriptor{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("ambiguous task name %q; use one of %s", task, qualifiedAlternatives(sources, task)))
	}
	owner, known := i.nameOwner[task]
	if !known {
		return types.TaskDescriptor{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("unknown task %q; active languages: %s", task, strings.Join(i.languages, ", ")))
	}
	return i.lookupIn(owner, task)
}

func (i taskIndex) lookupIn(language string, task string) (types.TaskDescriptor, error) {
	descriptor, known := i.byRef[language+"::"+task]
	if !known {
		return types.TaskDescriptor{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("unknown task %q for the %q language", task, language))
	}
	return descriptor, nil
}

func qualifiedAlternatives(languages []string, task string) string {
	var refs []string
	for _, language := range languages {
		refs = append(refs, language+"::"+task)
	}
	return strings.Join(refs, ", ")
}
