package integration

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskforge/internal/adapters"
	"taskforge/internal/app"
	"taskforge/internal/types"
	"taskforge/tests/testutil"
)

// repoFiles lays out a maven-style artifact tree, with sha256 signature
// companions for every artifact file.
func repoFiles() map[string][]byte {
	files := map[string][]byte{
		"/org/example/app/1.0.0/app-1.0.0.tar.gz":       []byte("app-artifact"),
		"/org/example/app/1.0.0/app-1.0.0.deps.yaml":    []byte("dependencies:\n  - org.example:util:1.2.3\n"),
		"/org/example/util/1.2.3/util-1.2.3.tar.gz":     []byte("util-artifact"),
		"/org/example/extra/2.0.0/extra-2.0.0.tar.gz":   []byte("extra-artifact"),
		"/org/example/extra/2.0.0/extra-2.0.0.deps.yaml": []byte("dependencies:\n  - org.example:util:1.2.5\n"),
		"/org/example/util/1.2.5/util-1.2.5.tar.gz":     []byte("util-artifact-newer"),
	}
	signed := map[string][]byte{}
	for path, content := range files {
		signed[path] = content
		if filepath.Ext(path) != ".yaml" {
			sum := sha256.Sum256(content)
			signed[path+".sha256"] = []byte(hex.EncodeToString(sum[:]))
		}
	}
	return signed
}

type repoServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []string
}

func startRepoServer(t *testing.T) *repoServer {
	t.Helper()
	files := repoFiles()
	repo := &repoServer{}
	repo.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		repo.mu.Lock()
		repo.requests = append(repo.requests, r.URL.Path)
		repo.mu.Unlock()
		content, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(content)
	}))
	t.Cleanup(repo.Close)
	return repo
}

func (s *repoServer) artifactRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, path := range s.requests {
		if filepath.Ext(path) == ".gz" {
			count++
		}
	}
	return count
}

const integrationProject = `name: sample
version: 1.0.0
languages:
  - generic
dependencies:
  app:
    spec: remote:org.example:app:1.0.0
    scope: sync
  extra:
    spec: remote:org.example:extra:2.0.0
    scope: sync
`

func newIntegrationService(t *testing.T, repository string) app.Service {
	t.Helper()
	registry := adapters.NewLanguageRegistry()
	require.NoError(t, registry.Register(adapters.NewGenericLanguage(repository)))
	return app.NewService(registry, t.TempDir())
}

func TestResolveAgainstRemoteRepository(t *testing.T) {
	server := startRepoServer(t)
	service := newIntegrationService(t, server.URL)

	projectDir := t.TempDir()
	path := testutil.WriteFile(t, projectDir, "project.yaml", []byte(integrationProject))

	result, err := service.Resolve(t.Context(), app.ResolveRequest{ProjectPath: path, Task: "sync"})
	require.NoError(t, err)

	var resolved []string
	for _, artifact := range result.Artifacts {
		resolved = append(resolved, artifact.Dependency.String())
		assert.Equal(t, types.VerifyVerified, artifact.Status, artifact.Dependency.String())
		assert.FileExists(t, artifact.Path)
	}
	// app pulls util 1.2.3 and extra pulls util 1.2.5; the micro-level
	// conflict settles on the newer version for both consumers.
	assert.Equal(t, []string{
		"org.example:app:1.0.0",
		"org.example:util:1.2.5",
		"org.example:extra:2.0.0",
	}, resolved)
}

func TestResolveReusesCacheAcrossInvocations(t *testing.T) {
	server := startRepoServer(t)

	registry := adapters.NewLanguageRegistry()
	require.NoError(t, registry.Register(adapters.NewGenericLanguage(server.URL)))
	cacheDir := t.TempDir()
	service := app.NewService(registry, cacheDir)

	projectDir := t.TempDir()
	path := testutil.WriteFile(t, projectDir, "project.yaml", []byte(integrationProject))

	_, err := service.Resolve(t.Context(), app.ResolveRequest{ProjectPath: path, Task: "sync"})
	require.NoError(t, err)
	firstPass := server.artifactRequests()

	_, err = service.Resolve(t.Context(), app.ResolveRequest{ProjectPath: path, Task: "sync"})
	require.NoError(t, err)
	assert.Equal(t, firstPass, server.artifactRequests(), "artifact downloads are served from the cache")
}

func TestRunSyncCopiesResolvedDependencies(t *testing.T) {
	server := startRepoServer(t)
	service := newIntegrationService(t, server.URL)

	projectDir := t.TempDir()
	path := testutil.WriteFile(t, projectDir, "project.yaml", []byte(integrationProject))

	result, err := service.Run(t.Context(), app.RunRequest{ProjectPath: path, Tasks: []string{"refresh"}})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Executed, "clean and sync execute, refresh is pseudo")

	entries, err := os.ReadDir(filepath.Join(projectDir, "deps"))
	require.NoError(t, err)
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	assert.ElementsMatch(t, []string{
		"app-1.0.0.tar.gz",
		"util-1.2.5.tar.gz",
		"extra-2.0.0.tar.gz",
	}, names)
}

func TestResolveConflictOverrideFromDescriptor(t *testing.T) {
	server := startRepoServer(t)
	service := newIntegrationService(t, server.URL)

	descriptor := integrationProject + `conflicts:
  org.example:util:
    action: older
`
	projectDir := t.TempDir()
	path := testutil.WriteFile(t, projectDir, "project.yaml", []byte(descriptor))

	result, err := service.Resolve(t.Context(), app.ResolveRequest{ProjectPath: path, Task: "sync"})
	require.NoError(t, err)

	var resolved []string
	for _, artifact := range result.Artifacts {
		resolved = append(resolved, artifact.Dependency.String())
	}
	assert.Contains(t, resolved, "org.example:util:1.2.3")
	assert.NotContains(t, resolved, "org.example:util:1.2.5")
}
