package types

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// Dependency is a single dependency declaration from a project
// descriptor. The Key is the descriptor map key the dependency was
// declared under; Group defaults to Name when not given. Version is
// always an exact semantic version, never a range. Scope lists the task
// names the dependency applies to. Transient is set during resolution
// for dependencies discovered from another dependency's metadata.
type Dependency struct {
	Key              string
	Location         LocationKind
	GroupID          string
	Name             string
	Version          string
	Classifier       string
	IgnoreTransients bool
	Scope            []string
	Transient        bool
}

// DependencySpec is the yaml shape of a dependency declaration. Either
// the compact Spec string ("location:group:name:version", group
// optional) or the individual fields may be used.
type DependencySpec struct {
	Spec             string       `yaml:"spec,omitempty"`
	Location         LocationKind `yaml:"location,omitempty"`
	Group            string       `yaml:"group,omitempty"`
	Name             string       `yaml:"name,omitempty"`
	Version          string       `yaml:"version,omitempty"`
	Classifier       string       `yaml:"classifier,omitempty"`
	IgnoreTransients bool         `yaml:"ignore_transients,omitempty"`
	Scope            ScopeList    `yaml:"scope"`
}

// ScopeList accepts either a single string or a list of strings in yaml.
type ScopeList []string

func (s *ScopeList) UnmarshalYAML(unmarshal func(any) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		*s = ScopeList{single}
		return nil
	}
	var many []string
	if err := unmarshal(&many); err != nil {
		return err
	}
	*s = ScopeList(many)
	return nil
}

// NewDependency builds a Dependency from its declaration, expanding the
// compact spec string form when present.
func NewDependency(key string, spec DependencySpec) (Dependency, error) {
	if spec.Spec != "" {
		expanded, err := parseCompactSpec(key, spec.Spec)
		if err != nil {
			return Dependency{}, err
		}
		spec.Location = expanded.Location
		spec.Group = expanded.Group
		spec.Name = expanded.Name
		spec.Version = expanded.Version
	}
	if !ValidLocation(spec.Location) {
		return Dependency{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("a dependency cannot have a location of %q", spec.Location))
	}
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		name = key
	}
	return Dependency{
		Key:              key,
		Location:         spec.Location,
		GroupID:          strings.TrimSpace(spec.Group),
		Name:             name,
		Version:          spec.Version,
		Classifier:       spec.Classifier,
		IgnoreTransients: spec.IgnoreTransients,
		Scope:            spec.Scope,
	}, nil
}

// parseCompactSpec expands "location:group:name:version" (or
// "location:name:version", or "location:version" where the name falls
// back to the declaration key) into the individual fields.
func parseCompactSpec(key string, value string) (DependencySpec, error) {
	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 4 {
		return DependencySpec{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("cannot make the %s dependency from the specification %q", key, value))
	}
	spec := DependencySpec{
		Location: LocationKind(parts[0]),
		Version:  parts[len(parts)-1],
	}
	middle := parts[1 : len(parts)-1]
	switch len(middle) {
	case 1:
		spec.Name = strings.TrimSpace(middle[0])
	case 2:
		spec.Group = strings.TrimSpace(middle[0])
		spec.Name = strings.TrimSpace(middle[1])
	}
	return spec, nil
}

// Group returns the dependency's group, defaulting to its name.
func (d Dependency) Group() string {
	if d.GroupID != "" {
		return d.GroupID
	}
	return d.Name
}

// ID returns the logical dependency key, "group:name". Two dependencies
// with the same ID at different versions are a conflict.
func (d Dependency) ID() string {
	return d.Group() + ":" + d.Name
}

// AppliesTo reports whether this dependency is in scope for a task.
func (d Dependency) AppliesTo(task string) bool {
	for _, scoped := range d.Scope {
		if scoped == task {
			return true
		}
	}
	return false
}

// Format fills a file-name pattern using the dependency's fields. The
// pattern may contain {group}, {name}, {version} and {classifier}.
func (d Dependency) Format(pattern string) string {
	replacer := strings.NewReplacer(
		"{group}", d.Group(),
		"{name}", d.Name,
		"{version}", d.Version,
		"{classifier}", d.Classifier,
	)
	return replacer.Replace(pattern)
}

// SameButForVersion reports whether other names the same logical
// dependency at a different version.
func (d Dependency) SameButForVersion(other Dependency) bool {
	return d.ID() == other.ID() && d.Version != other.Version
}

// DeriveFrom creates a transient child dependency off this one. The
// child inherits the parent's location and scope.
func (d Dependency) DeriveFrom(group string, name string, version string) Dependency {
	return Dependency{
		Key:       name,
		Location:  d.Location,
		GroupID:   group,
		Name:      name,
		Version:   version,
		Scope:     append([]string(nil), d.Scope...),
		Transient: true,
	}
}

func (d Dependency) String() string {
	return fmt.Sprintf("%s:%s:%s", d.Group(), d.Name, d.Version)
}

// Coordinate identifies one cache entry. A different version is a
// different coordinate, never an in-place update.
type Coordinate struct {
	Group      string
	Name       string
	Version    string
	Classifier string
	Location   LocationKind
}

// CoordinateOf derives the cache coordinate for a dependency.
func CoordinateOf(d Dependency) Coordinate {
	return Coordinate{
		Group:      d.Group(),
		Name:       d.Name,
		Version:    d.Version,
		Classifier: d.Classifier,
		Location:   d.Location,
	}
}

// PathSegments returns the relative directory for the coordinate inside
// a cache root.
func (c Coordinate) PathSegments() string {
	segments := []string{string(c.Location), c.Group, c.Name, c.Version}
	if c.Classifier != "" {
		segments = append(segments, c.Classifier)
	}
	return filepath.Join(segments...)
}

func (c Coordinate) String() string {
	id := fmt.Sprintf("%s:%s:%s", c.Group, c.Name, c.Version)
	if c.Classifier != "" {
		id += ":" + c.Classifier
	}
	return fmt.Sprintf("%s@%s", id, c.Location)
}

// CacheEntry is a stored, possibly verified artifact in the local cache.
type CacheEntry struct {
	Coordinate Coordinate
	Path       string
	Status     VerifyStatus
}

// ResolvedArtifact is the concrete output of resolving one dependency
// declaration: the primary file path, any secondary files keyed by kind
// (sources, docs), its verification status and the declaration chain
// that produced it. Artifacts are never mutated after creation.
type ResolvedArtifact struct {
	Dependency Dependency
	Path       string
	Secondary  map[string]string
	Status     VerifyStatus
	Provenance []string
}

// ConflictCandidate is one competing version of a logical dependency,
// with the provenance chain it was discovered through.
type ConflictCandidate struct {
	Version    string
	Provenance []string
}

// ConflictRecord collects every version discovered for one dependency ID
// during a resolution session. It is consumed by the conflict resolver
// and discarded afterwards.
type ConflictRecord struct {
	ID         string
	Candidates []ConflictCandidate
}
