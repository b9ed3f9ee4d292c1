package adapters

import (
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"taskforge/internal/types"
)

// ProjectFileAdapter loads project descriptor files from disk. Schema
// validation happens separately in the project validator so the loaded
// model can be inspected even when it is incomplete.
type ProjectFileAdapter struct{}

func NewProjectFileAdapter() ProjectFileAdapter {
	return ProjectFileAdapter{}
}

func (a ProjectFileAdapter) Load(path string) (types.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Project{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("failed to read project descriptor").
			WithCause(err)
	}
	var project types.Project
	if err := yaml.Unmarshal(data, &project); err != nil {
		return types.Project{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse project descriptor").
			WithCause(err)
	}
	order, err := dependencyOrder(data)
	if err != nil {
		return types.Project{}, err
	}
	project.DependencyOrder = order
	absolute, err := filepath.Abs(path)
	if err != nil {
		return types.Project{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to resolve project descriptor path").
			WithCause(err)
	}
	project.Dir = filepath.Dir(absolute)
	return project, nil
}

// dependencyOrder walks the raw yaml to recover the declaration order of
// the dependencies map, which Go maps do not preserve. Plans and
// resolution output stay deterministic because of it.
func dependencyOrder(data []byte) ([]string, error) {
	var document yaml.Node
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse project descriptor").
			WithCause(err)
	}
	if len(document.Content) == 0 {
		return nil, nil
	}
	root := document.Content[0]
	for index := 0; index+1 < len(root.Content); index += 2 {
		if root.Content[index].Value != "dependencies" {
			continue
		}
		mapping := root.Content[index+1]
		var order []string
		for keyIndex := 0; keyIndex < len(mapping.Content); keyIndex += 2 {
			order = append(order, mapping.Content[keyIndex].Value)
		}
		return order, nil
	}
	return nil, nil
}
