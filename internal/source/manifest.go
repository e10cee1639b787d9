package source

import (
	"encoding/json"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	pyprojectFile   = "pyproject.toml"
	packageJSONFile = "package.json"
)

// Manifest holds project metadata that widens the set of imports
// treated as project-internal.
type Manifest struct {
	// PythonPackages are top-level import names declared by pyproject.toml
	PythonPackages []string `json:"pythonPackages,omitempty"`
	// NodePackage is the package.json name
	NodePackage string `json:"nodePackage,omitempty"`
}

type pyproject struct {
	Project struct {
		Name string `toml:"name"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Name     string `toml:"name"`
			Packages []struct {
				Include string `toml:"include"`
			} `toml:"packages"`
		} `toml:"poetry"`
		Setuptools struct {
			Packages []string `toml:"packages"`
		} `toml:"setuptools"`
	} `toml:"tool"`
}

type packageJSON struct {
	Name string `json:"name"`
}

// parseManifest returns nil when neither file yields anything.
// Malformed manifests are ignored.
func parseManifest(pyprojectContent, packageJSONContent string) *Manifest {
	m := &Manifest{}

	if pyprojectContent != "" {
		var doc pyproject
		if err := toml.Unmarshal([]byte(pyprojectContent), &doc); err == nil {
			seen := map[string]bool{}
			add := func(name string) {
				name = importName(name)
				if name != "" && !seen[name] {
					seen[name] = true
					m.PythonPackages = append(m.PythonPackages, name)
				}
			}
			add(doc.Project.Name)
			add(doc.Tool.Poetry.Name)
			for _, p := range doc.Tool.Poetry.Packages {
				add(p.Include)
			}
			for _, p := range doc.Tool.Setuptools.Packages {
				add(p)
			}
			sort.Strings(m.PythonPackages)
		}
	}

	if packageJSONContent != "" {
		var doc packageJSON
		if err := json.Unmarshal([]byte(packageJSONContent), &doc); err == nil {
			m.NodePackage = doc.Name
		}
	}

	if len(m.PythonPackages) == 0 && m.NodePackage == "" {
		return nil
	}
	return m
}

// importName turns a distribution name into its import name:
// "billing-core" -> "billing_core", "src/billing" -> "billing".
func importName(name string) string {
	name = strings.TrimSpace(name)
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	name = strings.ReplaceAll(name, "-", "_")
	name = strings.ReplaceAll(name, ".", "_")
	return strings.ToLower(name)
}
