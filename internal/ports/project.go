package ports

import "taskforge/internal/types"

// ProjectLoaderPort loads and validates a project descriptor file.
type ProjectLoaderPort interface {
	Load(path string) (types.Project, error)
}
