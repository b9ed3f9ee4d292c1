package ports

import (
	"context"

	"taskforge/internal/types"
)

// LanguagePort is the capability set a language plugin supplies to the
// core. The core never knows how a language compiles, packages or lays
// out its artifacts; it only asks the language for task descriptors and
// for the information needed to locate dependency files.
type LanguagePort interface {
	// Name returns the language's registry name.
	Name() string

	// ListTasks returns the tasks this language publishes.
	ListTasks() []types.TaskDescriptor

	// ArtifactName returns the primary file name for a dependency,
	// usually by filling the language's name pattern.
	ArtifactName(dep types.Dependency) string

	// RemoteURL returns the download URL for the named file of a
	// remote dependency.
	RemoteURL(dep types.Dependency, fileName string) (string, error)

	// ProjectDir resolves a project-kind dependency to the sibling
	// project's publishing directory and the language that sibling
	// project declares.
	ProjectDir(dep types.Dependency) (dir string, language string, err error)
}

// MetadataReaderPort is implemented by languages that support transient
// dependencies. A language port that does not implement it simply has
// no transient support.
type MetadataReaderPort interface {
	// MetadataName returns the name of the metadata companion file for
	// a dependency, or empty when the dependency has none.
	MetadataName(dep types.Dependency) string

	// ReadMetadata parses a fetched metadata file into the further
	// dependency declarations it describes.
	ReadMetadata(ctx context.Context, path string, parent types.Dependency) ([]types.Dependency, error)
}

// TaskRunnerPort is implemented by languages whose tasks carry real
// work. Pseudo-tasks never reach the runner.
type TaskRunnerPort interface {
	RunTask(ctx context.Context, project types.Project, task string, deps []types.ResolvedArtifact) error
}

// ProjectBinderPort is implemented by languages that support
// project-kind dependencies. The application binds the current
// descriptor's sibling project paths before resolution starts.
type ProjectBinderPort interface {
	BindProjects(paths map[string]string, baseDir string, loader ProjectLoaderPort)
}

// LanguageRegistryPort looks up language plugins by name.
type LanguageRegistryPort interface {
	Get(name string) (LanguagePort, bool)
	All() []LanguagePort
}
