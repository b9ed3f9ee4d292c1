package types

// ConflictOverride configures how a version conflict for one dependency
// ID is settled instead of the default distance-based policy. Action
// "error" is always fatal; "newer" and "older" pick by version order,
// with Warn controlling whether the pick is surfaced as a warning.
type ConflictOverride struct {
	Action ConflictAction `yaml:"action"`
	Warn   bool           `yaml:"warn"`
}

// FileCondition configures signature handling for one file name.
type FileCondition struct {
	Signature SignaturePolicy `yaml:"signature"`
}

// Locations lists the places dependency files may be searched outside a
// remote repository: local directories, in declared order, and sibling
// project descriptors keyed by dependency name.
type Locations struct {
	Local    []string          `yaml:"local,omitempty"`
	Projects map[string]string `yaml:"projects,omitempty"`
}

// Conditions groups per-file handling rules.
type Conditions struct {
	Files map[string]FileCondition `yaml:"files,omitempty"`
}

// Project is the in-memory model of a project descriptor file. Parsing
// and schema validation happen in the descriptor adapter; the core only
// reads this model.
type Project struct {
	Name         string                      `yaml:"name"`
	Version      string                      `yaml:"version"`
	Languages    []string                    `yaml:"languages"`
	Locations    Locations                   `yaml:"locations,omitempty"`
	Dependencies map[string]DependencySpec   `yaml:"dependencies,omitempty"`
	Conflicts    map[string]ConflictOverride `yaml:"conflicts,omitempty"`
	Conditions   Conditions                  `yaml:"conditions,omitempty"`
	Config       map[string]map[string]any   `yaml:"config,omitempty"`

	// DependencyOrder preserves the declaration order of the
	// dependencies map so plans and resolution output stay
	// deterministic across runs.
	DependencyOrder []string `yaml:"-"`

	// Dir is the directory the descriptor was loaded from; relative
	// local locations resolve against it.
	Dir string `yaml:"-"`
}

// DependenciesFor returns the declared dependencies that apply to the
// given task, in declaration order.
func (p Project) DependenciesFor(task string) ([]Dependency, error) {
	var out []Dependency
	for _, key := range p.DependencyOrder {
		dep, err := NewDependency(key, p.Dependencies[key])
		if err != nil {
			return nil, err
		}
		if dep.AppliesTo(task) {
			out = append(out, dep)
		}
	}
	return out, nil
}
