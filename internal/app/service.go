package app

import (
	"context"
	"os"
	"path/filepath"

	"taskforge/internal/adapters"
	"taskforge/internal/core"
	"taskforge/internal/ports"
	"taskforge/internal/types"
)

// cacheDirName is the cache directory created under the user's home
// directory when no explicit cache root is configured.
const cacheDirName = ".taskforge"

type Service struct {
	Projects  ports.ProjectLoaderPort
	Languages *adapters.LanguageRegistry
	Cache     ports.CachePort
	Fetcher   ports.FetcherPort
	Digest    ports.DigestPort
}

func NewService(registry *adapters.LanguageRegistry, cacheRoot string) Service {
	if cacheRoot == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		cacheRoot = filepath.Join(home, cacheDirName)
	}
	return Service{
		Projects:  adapters.NewProjectFileAdapter(),
		Languages: registry,
		Cache:     adapters.NewDirCache(cacheRoot),
		Fetcher:   adapters.NewHTTPFetcher(),
		Digest:    adapters.NewDigestAdapter(),
	}
}

// loadProject loads and validates the descriptor, then restricts the
// registry to the languages the project activates.
func (s Service) loadProject(ctx context.Context, path string) (types.Project, *adapters.LanguageRegistry, error) {
	project, err := s.Projects.Load(path)
	if err != nil {
		return types.Project{}, nil, err
	}
	if err := core.NewProjectValidator().ValidateProject(ctx, project); err != nil {
		return types.Project{}, nil, err
	}
	active, err := s.Languages.Select(project.Languages)
	if err != nil {
		return types.Project{}, nil, err
	}
	return project, active, nil
}

// newResolver wires a resolver core for one language under the
// project's conflict, signature and location configuration.
func (s Service) newResolver(project types.Project, language ports.LanguagePort, workers int) core.ResolverCore {
	if binder, ok := language.(ports.ProjectBinderPort); ok {
		binder.BindProjects(project.Locations.Projects, project.Dir, s.Projects)
	}
	resolver := core.NewResolverCore(
		language,
		s.Cache,
		s.Fetcher,
		s.Digest,
		core.NewConflictResolver(policiesFor(project)),
		filePolicyFor(project),
	)
	resolver.Workers = workers
	for _, dir := range project.Locations.Local {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(project.Dir, dir)
		}
		resolver.LocalDirs = append(resolver.LocalDirs, dir)
	}
	return resolver
}
