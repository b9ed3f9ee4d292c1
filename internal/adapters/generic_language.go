package adapters

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"taskforge/internal/ports"
	"taskforge/internal/shared"
	"taskforge/internal/types"
)

const (
	defaultGenericExtension = "tar.gz"
	defaultDependencyDir    = "deps"
	genericPublishDir       = "dist"
)

// GenericLanguage is a file-oriented language plugin. It compiles
// nothing; its tasks collect resolved dependency files into a directory
// inside the project. Remote artifacts follow a maven-style repository
// layout and transient dependencies come from a yaml companion file
// listing compact coordinates.
type GenericLanguage struct {
	LanguageName string
	Repository   string
	Extension    string

	mu       sync.Mutex
	projects map[string]string
	baseDir  string
	loader   ports.ProjectLoaderPort
}

func NewGenericLanguage(repository string) *GenericLanguage {
	return &GenericLanguage{
		LanguageName: "generic",
		Repository:   repository,
		Extension:    defaultGenericExtension,
	}
}

func (g *GenericLanguage) Name() string {
	return g.LanguageName
}

func (g *GenericLanguage) ListTasks() []types.TaskDescriptor {
	return []types.TaskDescriptor{
		{
			Language: g.LanguageName,
			Name:     "clean",
			Help:     "Remove the dependency directory",
		},
		{
			Language: g.LanguageName,
			Name:     "sync",
			Help:     "Copy resolved dependencies into the dependency directory",
		},
		{
			Language: g.LanguageName,
			Name:     "refresh",
			Pseudo:   true,
			Requires: []string{"clean", "sync"},
			Help:     "Clean and rebuild the dependency directory",
		},
	}
}

func (g *GenericLanguage) ArtifactName(dep types.Dependency) string {
	return shared.JoinNonEmpty("-", dep.Name, dep.Version, dep.Classifier) + "." + g.extension()
}

// MetadataName names the companion file that lists a dependency's own
// dependencies.
func (g *GenericLanguage) MetadataName(dep types.Dependency) string {
	return dep.Format("{name}-{version}.deps.yaml")
}

func (g *GenericLanguage) RemoteURL(dep types.Dependency, fileName string) (string, error) {
	if g.Repository == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("the %s language has no remote repository configured", g.LanguageName))
	}
	groupPath := strings.ReplaceAll(dep.Group(), ".", "/")
	return strings.TrimSuffix(g.Repository, "/") + "/" +
		path.Join(groupPath, dep.Name, dep.Version, fileName), nil
}

// BindProjects installs the current descriptor's sibling project map so
// project-kind dependencies can be resolved.
func (g *GenericLanguage) BindProjects(paths map[string]string, baseDir string, loader ports.ProjectLoaderPort) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.projects = paths
	g.baseDir = baseDir
	g.loader = loader
}

// ProjectDir loads the sibling project named by the dependency key and
// returns its publishing directory along with the language the sibling
// declares.
func (g *GenericLanguage) ProjectDir(dep types.Dependency) (string, string, error) {
	g.mu.Lock()
	descriptorPath, bound := g.projects[dep.Key]
	baseDir := g.baseDir
	loader := g.loader
	g.mu.Unlock()

	if !bound || loader == nil {
		return "", "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("dependency not found: no project location is configured for %s", dep.Key))
	}
	if !filepath.IsAbs(descriptorPath) {
		descriptorPath = filepath.Join(baseDir, descriptorPath)
	}
	sibling, err := loader.Load(descriptorPath)
	if err != nil {
		return "", "", err
	}
	language := ""
	if len(sibling.Languages) > 0 {
		language = sibling.Languages[0]
	}
	return filepath.Join(sibling.Dir, genericPublishDir), language, nil
}

// genericMetadata is the companion file shape: compact "group:name:version"
// coordinates, group optional.
type genericMetadata struct {
	Dependencies []string `yaml:"dependencies"`
}

func (g *GenericLanguage) ReadMetadata(_ context.Context, metaPath string, parent types.Dependency) ([]types.Dependency, error) {
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to read the metadata file %s", metaPath)).
			WithCause(err)
	}
	var meta genericMetadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("failed to parse the metadata file %s", metaPath)).
			WithCause(err)
	}

	var children []types.Dependency
	for _, coordinate := range meta.Dependencies {
		parts := strings.Split(coordinate, ":")
		var group, name, version string
		switch len(parts) {
		case 2:
			name, version = parts[0], parts[1]
		case 3:
			group, name, version = parts[0], parts[1], parts[2]
		default:
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("cannot make a dependency from the coordinate %q in %s", coordinate, metaPath))
		}
		children = append(children, parent.DeriveFrom(group, name, version))
	}
	return children, nil
}

// RunTask executes one of the language's real tasks against the task's
// resolved dependency set.
func (g *GenericLanguage) RunTask(ctx context.Context, project types.Project, task string, deps []types.ResolvedArtifact) error {
	dest := g.dependencyDir(project)
	switch task {
	case "clean":
		log.Ctx(ctx).Debug().Str("dir", dest).Msg("removing dependency directory")
		return os.RemoveAll(dest)
	case "sync":
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("failed to create the dependency directory %s", dest)).
				WithCause(err)
		}
		for _, artifact := range deps {
			if err := copyFile(artifact.Path, filepath.Join(dest, filepath.Base(artifact.Path))); err != nil {
				return err
			}
			log.Ctx(ctx).Debug().
				Str("dependency", artifact.Dependency.String()).
				Str("dir", dest).
				Msg("dependency copied")
		}
		return nil
	default:
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("unknown task %q for the %q language", task, g.LanguageName))
	}
}

// dependencyDir resolves the language's target directory from the
// project configuration, relative paths against the project directory.
func (g *GenericLanguage) dependencyDir(project types.Project) string {
	dir := defaultDependencyDir
	if config, ok := project.Config[g.LanguageName]; ok {
		if raw, ok := config["dir"].(string); ok && raw != "" {
			dir = raw
		}
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(project.Dir, dir)
}

func (g *GenericLanguage) extension() string {
	if g.Extension != "" {
		return g.Extension
	}
	return defaultGenericExtension
}

func copyFile(src string, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to open %s", src)).
			WithCause(err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to create %s", dst)).
			WithCause(err)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to copy %s to %s", src, dst)).
			WithCause(err)
	}
	return out.Close()
}
