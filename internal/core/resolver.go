package core

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"taskforge/internal/policies"
	"taskforge/internal/ports"
	"taskforge/internal/types"
)

const defaultResolveWorkers = 4

// ResolverCore resolves dependency declarations into concrete artifact
// sets for one task. Remote files go through the artifact cache and
// signature verification; transient dependencies discovered in metadata
// files are expanded recursively; competing versions of the same logical
// dependency are arbitrated by the conflict resolver before the set is
// returned.
type ResolverCore struct {
	Language  ports.LanguagePort
	Cache     ports.CachePort
	Fetcher   ports.FetcherPort
	Digest    ports.DigestPort
	Conflicts ConflictResolver
	Files     policies.FilePolicy

	// LocalDirs are searched in declared order for local-kind
	// dependencies; the first match wins.
	LocalDirs []string

	// Algorithms lists the signature algorithms tried, in order, when
	// verifying a downloaded file. The first signature found decides.
	Algorithms []string

	// Workers bounds the number of sibling declarations resolved
	// concurrently.
	Workers int
}

func NewResolverCore(
	language ports.LanguagePort,
	cache ports.CachePort,
	fetcher ports.FetcherPort,
	digest ports.DigestPort,
	conflicts ConflictResolver,
	files policies.FilePolicy,
) ResolverCore {
	return ResolverCore{
		Language:   language,
		Cache:      cache,
		Fetcher:    fetcher,
		Digest:     digest,
		Conflicts:  conflicts,
		Files:      files,
		Algorithms: []string{"sha256", "sha1"},
	}
}

// Resolve produces the conflict-resolved artifact set for the given
// task from the declarations that are in scope for it. Sibling
// top-level declarations resolve concurrently; a fatal error in any of
// them cancels the in-flight rest.
func (r ResolverCore) Resolve(ctx context.Context, task string, declared []types.Dependency) ([]types.ResolvedArtifact, error) {
	if r.Language == nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("resolver requires a language port")
	}

	var inScope []types.Dependency
	for _, dep := range declared {
		if dep.AppliesTo(task) {
			inScope = append(inScope, dep)
		}
	}
	if len(inScope) == 0 {
		return nil, nil
	}

	branches, err := r.resolveBranches(ctx, task, inScope)
	if err != nil {
		return nil, err
	}
	artifacts, err := r.mergeBranches(ctx, branches)
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Debug().Str("task", task).Int("artifacts", len(artifacts)).Msg("dependencies resolved")
	return artifacts, nil
}

// resolveBranches runs one resolution branch per top-level declaration
// on a bounded worker pool. Branch results keep their declaration slot
// so the merged output is deterministic regardless of completion order.
func (r ResolverCore) resolveBranches(ctx context.Context, task string, inScope []types.Dependency) ([][]types.ResolvedArtifact, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workerCount := r.Workers
	if workerCount <= 0 {
		workerCount = defaultResolveWorkers
	}
	if len(inScope) < workerCount {
		workerCount = len(inScope)
	}

	branches := make([][]types.ResolvedArtifact, len(inScope))
	sem := make(chan struct{}, workerCount)
	var wg sync.WaitGroup
	var errMu sync.Mutex
	var firstErr error
	for index, dep := range inScope {
		index, dep := index, dep
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			if ctx.Err() != nil {
				return
			}
			var artifacts []types.ResolvedArtifact
			if err := r.resolveBranch(ctx, task, dep, nil, &artifacts); err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
					cancel()
				}
				errMu.Unlock()
				return
			}
			branches[index] = artifacts
		}()
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return branches, nil
}

// resolveBranch resolves one declaration and, depth first, every
// transient dependency below it. trail carries the ancestor chain for
// cycle detection and provenance. A failing transient that is not in
// scope for the requested task only drops its own sub-tree.
func (r ResolverCore) resolveBranch(ctx context.Context, task string, dep types.Dependency, trail []string, out *[]types.ResolvedArtifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, ancestor := range trail {
		if idOf(ancestor) == dep.ID() {
			chain := append(append([]string(nil), trail...), dep.String())
			return errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg(fmt.Sprintf("transient dependency cycle detected: %s", strings.Join(chain, " -> ")))
		}
	}

	artifact, children, err := r.resolveOne(ctx, dep, trail)
	if err != nil {
		if dep.Transient && !dep.AppliesTo(task) {
			log.Ctx(ctx).Warn().
				Str("dependency", dep.String()).
				Err(err).
				Msg("dropping out-of-scope transient dependency branch")
			return nil
		}
		return err
	}

	*out = append(*out, artifact)
	trail = append(trail, dep.String())
	for _, child := range children {
		if err := r.resolveBranch(ctx, task, child, trail, out); err != nil {
			return err
		}
	}
	return nil
}

// resolveOne turns a single declaration into a resolved artifact plus
// any transient declarations found in its metadata file.
func (r ResolverCore) resolveOne(ctx context.Context, dep types.Dependency, trail []string) (types.ResolvedArtifact, []types.Dependency, error) {
	name := r.Language.ArtifactName(dep)
	provenance := append(append([]string(nil), trail...), dep.String())

	var path string
	var status types.VerifyStatus
	var err error
	switch dep.Location {
	case types.LocationRemote:
		path, status, err = r.resolveRemoteFile(ctx, dep, name, false)
	case types.LocationLocal:
		path, err = r.resolveLocalFile(dep, name)
		status = types.VerifyUnverified
	case types.LocationProject:
		path, err = r.resolveProjectFile(dep, name)
		status = types.VerifyUnverified
	default:
		err = errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("a dependency cannot have a location of %q", dep.Location))
	}
	if err != nil {
		return types.ResolvedArtifact{}, nil, err
	}

	artifact := types.ResolvedArtifact{
		Dependency: dep,
		Path:       path,
		Status:     status,
		Provenance: provenance,
	}
	children, err := r.readTransients(ctx, dep, path)
	if err != nil {
		return types.ResolvedArtifact{}, nil, err
	}
	return artifact, children, nil
}

// readTransients loads the dependency's metadata companion file, when
// the language supports one, and parses it into child declarations.
func (r ResolverCore) readTransients(ctx context.Context, dep types.Dependency, artifactPath string) ([]types.Dependency, error) {
	if dep.IgnoreTransients {
		return nil, nil
	}
	reader, ok := r.Language.(ports.MetadataReaderPort)
	if !ok {
		return nil, nil
	}
	metaName := reader.MetadataName(dep)
	if metaName == "" {
		return nil, nil
	}

	var metaPath string
	if dep.Location == types.LocationRemote {
		path, _, err := r.resolveRemoteFile(ctx, dep, metaName, true)
		if err != nil {
			return nil, err
		}
		metaPath = path
	} else {
		candidate := filepath.Join(filepath.Dir(artifactPath), metaName)
		if fileExists(candidate) {
			metaPath = candidate
		}
	}
	if metaPath == "" {
		return nil, nil
	}
	return reader.ReadMetadata(ctx, metaPath, dep)
}

// resolveRemoteFile produces a locally cached, verified copy of the
// named remote file. The cache is consulted by coordinate first; only a
// miss touches the network. Optional files (metadata) that do not exist
// remotely return an empty path rather than an error.
func (r ResolverCore) resolveRemoteFile(ctx context.Context, dep types.Dependency, name string, optional bool) (string, types.VerifyStatus, error) {
	coord := types.CoordinateOf(dep)
	if entry, ok, err := r.Cache.Lookup(coord, name); err != nil {
		return "", types.VerifyFailed, err
	} else if ok {
		log.Ctx(ctx).Debug().Str("coordinate", coord.String()).Str("file", name).Msg("artifact cache hit")
		return entry.Path, entry.Status, nil
	}

	url, err := r.Language.RemoteURL(dep, name)
	if err != nil {
		return "", types.VerifyFailed, err
	}
	data, found, err := r.Fetcher.Fetch(ctx, url, optional)
	if err != nil {
		return "", types.VerifyFailed, err
	}
	if !found {
		if optional {
			return "", types.VerifyUnverified, nil
		}
		return "", types.VerifyFailed, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("dependency not found: no remote file at %s for %s", url, coord))
	}

	status, err := r.verifyDownload(ctx, url, name, data)
	if err != nil {
		return "", types.VerifyFailed, err
	}
	entry, err := r.Cache.Store(ctx, coord, name, data, status)
	if err != nil {
		return "", types.VerifyFailed, err
	}
	return entry.Path, entry.Status, nil
}

// verifyDownload checks the downloaded bytes against a companion
// signature file, trying each configured algorithm in order. A missing
// signature leaves the file unverified; only a computed mismatch is a
// failure, handled per the file's signature policy.
func (r ResolverCore) verifyDownload(ctx context.Context, url string, name string, data []byte) (types.VerifyStatus, error) {
	for _, algorithm := range r.Algorithms {
		signature, found, err := r.Fetcher.Fetch(ctx, url+"."+algorithm, true)
		if err != nil {
			return types.VerifyFailed, err
		}
		if !found {
			continue
		}
		expected := firstField(string(signature))
		computed, err := r.Digest.Sign(algorithm, bytes.NewReader(data))
		if err != nil {
			return types.VerifyFailed, err
		}
		if expected == computed {
			return types.VerifyVerified, nil
		}

		switch r.Files.SignaturePolicyFor(name) {
		case types.SignatureIgnore:
			return types.VerifyUnverified, nil
		case types.SignatureWarn:
			log.Ctx(ctx).Warn().
				Str("file", name).
				Str("algorithm", algorithm).
				Str("expected", expected).
				Str("computed", computed).
				Msg("signature mismatch tolerated by policy")
			return types.VerifyUnverified, nil
		default:
			return types.VerifyFailed, errbuilder.New().
				WithCode(errbuilder.CodePermissionDenied).
				WithMsg(fmt.Sprintf(
					"signature verification failed for %s: %s %s != %s",
					name, algorithm, expected, computed,
				))
		}
	}
	return types.VerifyUnverified, nil
}

// resolveLocalFile searches the configured local directories in order.
func (r ResolverCore) resolveLocalFile(dep types.Dependency, name string) (string, error) {
	for _, dir := range r.LocalDirs {
		candidate := filepath.Join(dir, name)
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(fmt.Sprintf("dependency not found: %s is not present in any local location", name))
}

// resolveProjectFile asks the language for the sibling project's
// publishing directory. The sibling must declare the same language.
func (r ResolverCore) resolveProjectFile(dep types.Dependency, name string) (string, error) {
	dir, language, err := r.Language.ProjectDir(dep)
	if err != nil {
		return "", err
	}
	if language != r.Language.Name() {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf(
				"language mismatch: the %s project declares language %q, expected %q",
				dep.Key, language, r.Language.Name(),
			))
	}
	candidate := filepath.Join(dir, name)
	if !fileExists(candidate) {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("dependency not found: the %s project does not publish %s", dep.Key, name))
	}
	return candidate, nil
}

// mergeBranches flattens branch artifacts in declaration order, builds
// the per-ID conflict records and substitutes each conflict's winning
// version everywhere a losing one was referenced.
func (r ResolverCore) mergeBranches(ctx context.Context, branches [][]types.ResolvedArtifact) ([]types.ResolvedArtifact, error) {
	var order []string
	byVersion := map[string]map[string]types.ResolvedArtifact{}
	records := map[string]*types.ConflictRecord{}
	for _, branch := range branches {
		for _, artifact := range branch {
			id := artifact.Dependency.ID()
			record, seen := records[id]
			if !seen {
				order = append(order, id)
				record = &types.ConflictRecord{ID: id}
				records[id] = record
				byVersion[id] = map[string]types.ResolvedArtifact{}
			}
			version := artifact.Dependency.Version
			if _, known := byVersion[id][version]; !known {
				byVersion[id][version] = artifact
				record.Candidates = append(record.Candidates, types.ConflictCandidate{
					Version:    version,
					Provenance: artifact.Provenance,
				})
			}
		}
	}

	var out []types.ResolvedArtifact
	for _, id := range order {
		record := records[id]
		winner := record.Candidates[0]
		if len(record.Candidates) > 1 {
			resolved, err := r.Conflicts.Resolve(ctx, *record)
			if err != nil {
				return nil, err
			}
			winner = resolved
		}
		out = append(out, byVersion[id][winner.Version])
	}
	return out, nil
}

// idOf strips the version from a "group:name:version" provenance link.
func idOf(link string) string {
	if index := strings.LastIndex(link, ":"); index > 0 {
		return link[:index]
	}
	return link
}

// firstField returns the first whitespace-separated field of s, or ""
// if s contains none.
func firstField(s string) string {
	if fields := strings.Fields(s); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
