package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskforge/internal/policies"
	"taskforge/internal/ports"
	"taskforge/internal/types"
)

// ---------------------------------------------------------------------------
// fakes
// ---------------------------------------------------------------------------

type memCache struct {
	mu      sync.Mutex
	dir     string
	entries map[string]types.CacheEntry
}

func newMemCache(t *testing.T) *memCache {
	return &memCache{dir: t.TempDir(), entries: map[string]types.CacheEntry{}}
}

func (c *memCache) key(coord types.Coordinate, fileName string) string {
	return coord.String() + "/" + fileName
}

func (c *memCache) Lookup(coord types.Coordinate, fileName string) (types.CacheEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[c.key(coord, fileName)]
	return entry, ok, nil
}

func (c *memCache) Store(_ context.Context, coord types.Coordinate, fileName string, data []byte, status types.VerifyStatus) (types.CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	path := filepath.Join(c.dir, coord.PathSegments())
	if err := os.MkdirAll(path, 0o755); err != nil {
		return types.CacheEntry{}, err
	}
	path = filepath.Join(path, fileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return types.CacheEntry{}, err
	}
	entry := types.CacheEntry{Coordinate: coord, Path: path, Status: status}
	c.entries[c.key(coord, fileName)] = entry
	return entry, nil
}

type memFetcher struct {
	mu      sync.Mutex
	files   map[string][]byte
	fetched []string
}

func newMemFetcher(files map[string][]byte) *memFetcher {
	return &memFetcher{files: files}
}

func (f *memFetcher) Fetch(_ context.Context, url string, _ bool) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, url)
	data, ok := f.files[url]
	if !ok {
		return nil, false, nil
	}
	return data, true, nil
}

func (f *memFetcher) fetchCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, fetched := range f.fetched {
		if fetched == url {
			count++
		}
	}
	return count
}

type sha256Digest struct{}

func (sha256Digest) Sign(algorithm string, reader io.Reader) (string, error) {
	hash := sha256.New()
	if _, err := io.Copy(hash, reader); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// metaLanguage adds transient metadata support on top of fakeLanguage.
// Metadata files contain one "group:name:version" coordinate per line;
// lines starting with "!" derive a child with no scope.
type metaLanguage struct {
	fakeLanguage
}

func (m *metaLanguage) MetadataName(dep types.Dependency) string {
	return dep.Format("{name}-{version}.deps")
}

func (m *metaLanguage) ReadMetadata(_ context.Context, path string, parent types.Dependency) ([]types.Dependency, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var children []types.Dependency
	for _, line := range strings.Fields(string(data)) {
		unscoped := strings.HasPrefix(line, "!")
		line = strings.TrimPrefix(line, "!")
		parts := strings.Split(line, ":")
		child := parent.DeriveFrom(parts[0], parts[1], parts[2])
		if unscoped {
			child.Scope = nil
		}
		children = append(children, child)
	}
	return children, nil
}

// projectLanguage resolves project-kind dependencies to a fixed dir.
type projectLanguage struct {
	fakeLanguage
	dir      string
	language string
}

func (p *projectLanguage) ProjectDir(types.Dependency) (string, string, error) {
	return p.dir, p.language, nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func remoteDep(key string, group string, name string, version string, scope ...string) types.Dependency {
	if len(scope) == 0 {
		scope = []string{"test"}
	}
	return types.Dependency{
		Key:      key,
		Location: types.LocationRemote,
		GroupID:  group,
		Name:     name,
		Version:  version,
		Scope:    scope,
	}
}

func newTestResolver(language ports.LanguagePort, cache ports.CachePort, fetcher ports.FetcherPort) ResolverCore {
	return NewResolverCore(
		language,
		cache,
		fetcher,
		sha256Digest{},
		NewConflictResolver(policies.NewConflictPolicy(nil)),
		policies.NewFilePolicy(nil),
	)
}

// ---------------------------------------------------------------------------
// remote resolution
// ---------------------------------------------------------------------------

func TestResolveRemoteVerifiedArtifact(t *testing.T) {
	content := []byte("artifact-bytes")
	fetcher := newMemFetcher(map[string][]byte{
		"http://repo.test/lib-1.0.0.txt":        content,
		"http://repo.test/lib-1.0.0.txt.sha256": []byte(sha256Hex(content) + "  lib-1.0.0.txt\n"),
	})
	cache := newMemCache(t)
	resolver := newTestResolver(&fakeLanguage{name: "java"}, cache, fetcher)

	artifacts, err := resolver.Resolve(t.Context(), "test",
		[]types.Dependency{remoteDep("lib", "org", "lib", "1.0.0")})
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, types.VerifyVerified, artifacts[0].Status)
	assert.FileExists(t, artifacts[0].Path)
}

func TestResolveRemoteUsesCacheOnSecondPass(t *testing.T) {
	content := []byte("artifact-bytes")
	url := "http://repo.test/lib-1.0.0.txt"
	fetcher := newMemFetcher(map[string][]byte{url: content})
	cache := newMemCache(t)
	resolver := newTestResolver(&fakeLanguage{name: "java"}, cache, fetcher)
	declared := []types.Dependency{remoteDep("lib", "org", "lib", "1.0.0")}

	_, err := resolver.Resolve(t.Context(), "test", declared)
	require.NoError(t, err)
	_, err = resolver.Resolve(t.Context(), "test", declared)
	require.NoError(t, err)

	assert.Equal(t, 1, fetcher.fetchCount(url))
}

func TestResolveRemoteMissingSignatureIsUnverified(t *testing.T) {
	fetcher := newMemFetcher(map[string][]byte{
		"http://repo.test/lib-1.0.0.txt": []byte("artifact-bytes"),
	})
	resolver := newTestResolver(&fakeLanguage{name: "java"}, newMemCache(t), fetcher)

	artifacts, err := resolver.Resolve(t.Context(), "test",
		[]types.Dependency{remoteDep("lib", "org", "lib", "1.0.0")})
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, types.VerifyUnverified, artifacts[0].Status)
}

func TestResolveRemoteSignatureMismatchFailsByDefault(t *testing.T) {
	fetcher := newMemFetcher(map[string][]byte{
		"http://repo.test/lib-1.0.0.txt":        []byte("artifact-bytes"),
		"http://repo.test/lib-1.0.0.txt.sha256": []byte("deadbeef"),
	})
	resolver := newTestResolver(&fakeLanguage{name: "java"}, newMemCache(t), fetcher)

	_, err := resolver.Resolve(t.Context(), "test",
		[]types.Dependency{remoteDep("lib", "org", "lib", "1.0.0")})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodePermissionDenied, errbuilder.CodeOf(err))
	assert.Contains(t, err.Error(), "signature verification failed")
}

func TestResolveRemoteSignatureMismatchToleratedByWarnPolicy(t *testing.T) {
	fetcher := newMemFetcher(map[string][]byte{
		"http://repo.test/lib-1.0.0.txt":        []byte("artifact-bytes"),
		"http://repo.test/lib-1.0.0.txt.sha256": []byte("deadbeef"),
	})
	resolver := NewResolverCore(
		&fakeLanguage{name: "java"},
		newMemCache(t),
		fetcher,
		sha256Digest{},
		NewConflictResolver(policies.NewConflictPolicy(nil)),
		policies.NewFilePolicy(map[string]types.FileCondition{
			"lib-1.0.0.txt": {Signature: types.SignatureWarn},
		}),
	)

	artifacts, err := resolver.Resolve(t.Context(), "test",
		[]types.Dependency{remoteDep("lib", "org", "lib", "1.0.0")})
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, types.VerifyUnverified, artifacts[0].Status)
}

func TestResolveRemoteNotFound(t *testing.T) {
	resolver := newTestResolver(&fakeLanguage{name: "java"}, newMemCache(t), newMemFetcher(nil))

	_, err := resolver.Resolve(t.Context(), "test",
		[]types.Dependency{remoteDep("lib", "org", "lib", "1.0.0")})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
	assert.Contains(t, err.Error(), "dependency not found")
}

// ---------------------------------------------------------------------------
// local and project resolution
// ---------------------------------------------------------------------------

func TestResolveLocalFirstMatchWins(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(second, "lib-1.0.0.txt"), []byte("second"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(first, "lib-1.0.0.txt"), []byte("first"), 0o644))

	resolver := newTestResolver(&fakeLanguage{name: "java"}, newMemCache(t), newMemFetcher(nil))
	resolver.LocalDirs = []string{first, second}

	dep := remoteDep("lib", "org", "lib", "1.0.0")
	dep.Location = types.LocationLocal
	artifacts, err := resolver.Resolve(t.Context(), "test", []types.Dependency{dep})
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, filepath.Join(first, "lib-1.0.0.txt"), artifacts[0].Path)
	assert.Equal(t, types.VerifyUnverified, artifacts[0].Status)
}

func TestResolveLocalNotFound(t *testing.T) {
	resolver := newTestResolver(&fakeLanguage{name: "java"}, newMemCache(t), newMemFetcher(nil))
	resolver.LocalDirs = []string{t.TempDir()}

	dep := remoteDep("lib", "org", "lib", "1.0.0")
	dep.Location = types.LocationLocal
	_, err := resolver.Resolve(t.Context(), "test", []types.Dependency{dep})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

func TestResolveProjectLanguageMismatch(t *testing.T) {
	language := &projectLanguage{
		fakeLanguage: fakeLanguage{name: "java"},
		dir:          t.TempDir(),
		language:     "cpp",
	}
	resolver := newTestResolver(language, newMemCache(t), newMemFetcher(nil))

	dep := remoteDep("sibling", "org", "sibling", "1.0.0")
	dep.Location = types.LocationProject
	_, err := resolver.Resolve(t.Context(), "test", []types.Dependency{dep})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
	assert.Contains(t, err.Error(), "language mismatch")
}

func TestResolveProjectPublishedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sibling-1.0.0.txt"), []byte("published"), 0o644))
	language := &projectLanguage{
		fakeLanguage: fakeLanguage{name: "java"},
		dir:          dir,
		language:     "java",
	}
	resolver := newTestResolver(language, newMemCache(t), newMemFetcher(nil))

	dep := remoteDep("sibling", "org", "sibling", "1.0.0")
	dep.Location = types.LocationProject
	artifacts, err := resolver.Resolve(t.Context(), "test", []types.Dependency{dep})
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, filepath.Join(dir, "sibling-1.0.0.txt"), artifacts[0].Path)
}

// ---------------------------------------------------------------------------
// transient dependencies
// ---------------------------------------------------------------------------

func TestResolveTransientChain(t *testing.T) {
	fetcher := newMemFetcher(map[string][]byte{
		"http://repo.test/app-1.0.0.txt":  []byte("app"),
		"http://repo.test/app-1.0.0.deps": []byte("org:lib:2.0.0\n"),
		"http://repo.test/lib-2.0.0.txt":  []byte("lib"),
	})
	resolver := newTestResolver(&metaLanguage{fakeLanguage{name: "java"}}, newMemCache(t), fetcher)

	artifacts, err := resolver.Resolve(t.Context(), "test",
		[]types.Dependency{remoteDep("app", "org", "app", "1.0.0")})
	require.NoError(t, err)
	require.Len(t, artifacts, 2)

	assert.False(t, artifacts[0].Dependency.Transient)
	assert.True(t, artifacts[1].Dependency.Transient)
	expected := []string{"org:app:1.0.0", "org:lib:2.0.0"}
	if diff := cmp.Diff(expected, artifacts[1].Provenance); diff != "" {
		t.Fatalf("unexpected provenance (-want +got):\n%s", diff)
	}
}

func TestResolveTransientCycle(t *testing.T) {
	fetcher := newMemFetcher(map[string][]byte{
		"http://repo.test/a-1.0.0.txt":  []byte("a"),
		"http://repo.test/a-1.0.0.deps": []byte("org:b:1.0.0\n"),
		"http://repo.test/b-1.0.0.txt":  []byte("b"),
		"http://repo.test/b-1.0.0.deps": []byte("org:a:1.0.0\n"),
	})
	resolver := newTestResolver(&metaLanguage{fakeLanguage{name: "java"}}, newMemCache(t), fetcher)

	_, err := resolver.Resolve(t.Context(), "test",
		[]types.Dependency{remoteDep("a", "org", "a", "1.0.0")})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
	assert.Contains(t, err.Error(), "transient dependency cycle")
}

func TestResolveIgnoreTransients(t *testing.T) {
	fetcher := newMemFetcher(map[string][]byte{
		"http://repo.test/app-1.0.0.txt":  []byte("app"),
		"http://repo.test/app-1.0.0.deps": []byte("org:lib:2.0.0\n"),
	})
	resolver := newTestResolver(&metaLanguage{fakeLanguage{name: "java"}}, newMemCache(t), fetcher)

	dep := remoteDep("app", "org", "app", "1.0.0")
	dep.IgnoreTransients = true
	artifacts, err := resolver.Resolve(t.Context(), "test", []types.Dependency{dep})
	require.NoError(t, err)
	assert.Len(t, artifacts, 1)
}

func TestResolveOutOfScopeTransientFailureIsDropped(t *testing.T) {
	// The "!" prefix derives the child with no scope; its artifact is
	// deliberately missing from the fetcher.
	fetcher := newMemFetcher(map[string][]byte{
		"http://repo.test/app-1.0.0.txt":  []byte("app"),
		"http://repo.test/app-1.0.0.deps": []byte("!org:lib:2.0.0\n"),
	})
	resolver := newTestResolver(&metaLanguage{fakeLanguage{name: "java"}}, newMemCache(t), fetcher)

	artifacts, err := resolver.Resolve(t.Context(), "test",
		[]types.Dependency{remoteDep("app", "org", "app", "1.0.0")})
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, "app", artifacts[0].Dependency.Name)
}

// ---------------------------------------------------------------------------
// scope and conflicts
// ---------------------------------------------------------------------------

func TestResolveScopeFiltering(t *testing.T) {
	resolver := newTestResolver(&fakeLanguage{name: "java"}, newMemCache(t), newMemFetcher(nil))

	artifacts, err := resolver.Resolve(t.Context(), "doc",
		[]types.Dependency{remoteDep("lib", "org", "lib", "1.0.0", "test")})
	require.NoError(t, err)
	assert.Empty(t, artifacts)
}

func TestResolveConflictSubstitutesWinner(t *testing.T) {
	fetcher := newMemFetcher(map[string][]byte{
		"http://repo.test/a-1.0.0.txt":  []byte("a"),
		"http://repo.test/a-1.0.0.deps": []byte("org:lib:1.2.3\n"),
		"http://repo.test/b-1.0.0.txt":  []byte("b"),
		"http://repo.test/b-1.0.0.deps": []byte("org:lib:1.2.7\n"),
		"http://repo.test/lib-1.2.3.txt": []byte("lib-old"),
		"http://repo.test/lib-1.2.7.txt": []byte("lib-new"),
	})
	resolver := newTestResolver(&metaLanguage{fakeLanguage{name: "java"}}, newMemCache(t), fetcher)

	artifacts, err := resolver.Resolve(t.Context(), "test", []types.Dependency{
		remoteDep("a", "org", "a", "1.0.0"),
		remoteDep("b", "org", "b", "1.0.0"),
	})
	require.NoError(t, err)

	var versions []string
	for _, artifact := range artifacts {
		versions = append(versions, artifact.Dependency.String())
	}
	expected := []string{"org:a:1.0.0", "org:lib:1.2.7", "org:b:1.0.0"}
	if diff := cmp.Diff(expected, versions); diff != "" {
		t.Fatalf("unexpected artifact set (-want +got):\n%s", diff)
	}
}

func TestResolveConflictAcrossMinorVersionsFails(t *testing.T) {
	fetcher := newMemFetcher(map[string][]byte{
		"http://repo.test/a-1.0.0.txt":  []byte("a"),
		"http://repo.test/a-1.0.0.deps": []byte("org:lib:1.2.0\n"),
		"http://repo.test/b-1.0.0.txt":  []byte("b"),
		"http://repo.test/b-1.0.0.deps": []byte("org:lib:1.3.0\n"),
		"http://repo.test/lib-1.2.0.txt": []byte("lib"),
		"http://repo.test/lib-1.3.0.txt": []byte("lib"),
	})
	resolver := newTestResolver(&metaLanguage{fakeLanguage{name: "java"}}, newMemCache(t), fetcher)

	_, err := resolver.Resolve(t.Context(), "test", []types.Dependency{
		remoteDep("a", "org", "a", "1.0.0"),
		remoteDep("b", "org", "b", "1.0.0"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version conflict")
}

func TestResolveDeterministicOrderUnderConcurrency(t *testing.T) {
	files := map[string][]byte{}
	var declared []types.Dependency
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, name := range names {
		files["http://repo.test/"+name+"-1.0.0.txt"] = []byte(name)
		declared = append(declared, remoteDep(name, "org", name, "1.0.0"))
	}
	resolver := newTestResolver(&fakeLanguage{name: "java"}, newMemCache(t), newMemFetcher(files))
	resolver.Workers = 4

	artifacts, err := resolver.Resolve(t.Context(), "test", declared)
	require.NoError(t, err)
	require.Len(t, artifacts, len(names))
	for index, name := range names {
		assert.Equal(t, name, artifacts[index].Dependency.Name)
	}
}
