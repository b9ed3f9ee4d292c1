package adapters

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"taskforge/internal/types"
)

const cacheMetaName = "entry.yaml"

// DirCache is the persistent artifact cache, laid out on disk as
// root/location/group/name/version[/classifier]/file with a per
// coordinate sidecar recording each file's verification status.
// Writes are serialized per coordinate; identical re-stores are no-ops
// and a content change under an existing coordinate is a fatal cache
// inconsistency.
type DirCache struct {
	Root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// cacheMeta is the yaml sidecar shape: file name to verify status.
type cacheMeta struct {
	Files map[string]types.VerifyStatus `yaml:"files"`
}

func NewDirCache(root string) *DirCache {
	return &DirCache{
		Root:  root,
		locks: map[string]*sync.Mutex{},
	}
}

func (c *DirCache) Lookup(coord types.Coordinate, fileName string) (types.CacheEntry, bool, error) {
	lock := c.coordinateLock(coord)
	lock.Lock()
	defer lock.Unlock()

	dir := filepath.Join(c.Root, coord.PathSegments())
	path := filepath.Join(dir, fileName)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return types.CacheEntry{}, false, nil
	}
	meta, err := readCacheMeta(dir)
	if err != nil {
		return types.CacheEntry{}, false, err
	}
	status, ok := meta.Files[fileName]
	if !ok {
		status = types.VerifyUnverified
	}
	return types.CacheEntry{Coordinate: coord, Path: path, Status: status}, true, nil
}

func (c *DirCache) Store(ctx context.Context, coord types.Coordinate, fileName string, data []byte, status types.VerifyStatus) (types.CacheEntry, error) {
	lock := c.coordinateLock(coord)
	lock.Lock()
	defer lock.Unlock()

	dir := filepath.Join(c.Root, coord.PathSegments())
	path := filepath.Join(dir, fileName)

	if existing, err := os.ReadFile(path); err == nil {
		if !bytes.Equal(existing, data) {
			return types.CacheEntry{}, errbuilder.New().
				WithCode(errbuilder.CodeAlreadyExists).
				WithMsg(fmt.Sprintf(
					"cache inconsistency: %s already holds different content for %s",
					coord, fileName,
				))
		}
		log.Ctx(ctx).Debug().Str("coordinate", coord.String()).Str("file", fileName).Msg("identical artifact already cached")
		return types.CacheEntry{Coordinate: coord, Path: path, Status: status}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return types.CacheEntry{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create cache directory").
			WithCause(err)
	}
	temp := path + ".part"
	if err := os.WriteFile(temp, data, 0644); err != nil {
		return types.CacheEntry{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write cached artifact").
			WithCause(err)
	}
	if err := os.Rename(temp, path); err != nil {
		return types.CacheEntry{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to finalize cached artifact").
			WithCause(err)
	}

	meta, err := readCacheMeta(dir)
	if err != nil {
		return types.CacheEntry{}, err
	}
	if meta.Files == nil {
		meta.Files = map[string]types.VerifyStatus{}
	}
	meta.Files[fileName] = status
	if err := writeCacheMeta(dir, meta); err != nil {
		return types.CacheEntry{}, err
	}
	log.Ctx(ctx).Debug().Str("coordinate", coord.String()).Str("file", fileName).Str("status", string(status)).Msg("artifact cached")
	return types.CacheEntry{Coordinate: coord, Path: path, Status: status}, nil
}

// coordinateLock returns the mutex guarding one coordinate's directory.
func (c *DirCache) coordinateLock(coord types.Coordinate) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := coord.String()
	lock, ok := c.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[key] = lock
	}
	return lock
}

func readCacheMeta(dir string) (cacheMeta, error) {
	data, err := os.ReadFile(filepath.Join(dir, cacheMetaName))
	if err != nil {
		if os.IsNotExist(err) {
			return cacheMeta{}, nil
		}
		return cacheMeta{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read cache entry metadata").
			WithCause(err)
	}
	var meta cacheMeta
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return cacheMeta{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to parse cache entry metadata").
			WithCause(err)
	}
	return meta, nil
}

func writeCacheMeta(dir string, meta cacheMeta) error {
	data, err := yaml.Marshal(meta)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to marshal cache entry metadata").
			WithCause(err)
	}
	if err := os.WriteFile(filepath.Join(dir, cacheMetaName), data, 0644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write cache entry metadata").
			WithCause(err)
	}
	return nil
}
