// Package seed loads the bootstrap catalog: the module list, the default
// permission matrix and the administrative account.
package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aussiebroadwan/usermgmt/internal/auth/domain"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

var ErrInvalidCatalog = errors.New("seed: invalid catalog")

type fileCatalog struct {
	Modules  []string      `yaml:"modules"`
	Defaults []fileDefault `yaml:"defaults"`
	Admin    fileAdmin     `yaml:"admin"`
}

type fileDefault struct {
	Role   string   `yaml:"role"`
	Grants []string `yaml:"grants"`
}

type fileAdmin struct {
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
}

// Default returns the embedded catalog.
func Default() (domain.SeedCatalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from path. An empty path yields the embedded catalog.
func Load(path string) (domain.SeedCatalog, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.SeedCatalog{}, fmt.Errorf("seed: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (domain.SeedCatalog, error) {
	var fc fileCatalog
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return domain.SeedCatalog{}, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}

	var cat domain.SeedCatalog

	seen := make(map[string]bool, len(fc.Modules))
	for _, m := range fc.Modules {
		m = strings.TrimSpace(m)
		if m == "" {
			return domain.SeedCatalog{}, fmt.Errorf("%w: empty module name", ErrInvalidCatalog)
		}
		if seen[strings.ToLower(m)] {
			continue
		}
		seen[strings.ToLower(m)] = true
		cat.Modules = append(cat.Modules, m)
	}

	for _, d := range fc.Defaults {
		role, ok := domain.ParseRoleName(d.Role)
		if !ok {
			return domain.SeedCatalog{}, fmt.Errorf("%w: unknown role %q", ErrInvalidCatalog, d.Role)
		}

		var g domain.Grants
		for _, a := range d.Grants {
			action, ok := domain.ParseAction(a)
			if !ok {
				return domain.SeedCatalog{}, fmt.Errorf("%w: unknown action %q for role %s", ErrInvalidCatalog, a, role)
			}
			switch action {
			case domain.ActionCreate:
				g.Create = true
			case domain.ActionRead:
				g.Read = true
			case domain.ActionUpdate:
				g.Update = true
			case domain.ActionDelete:
				g.Delete = true
			}
		}
		cat.Defaults = append(cat.Defaults, domain.RoleDefaults{Role: role, Grants: g})
	}

	cat.Admin = domain.AdminSeed{
		Email:    strings.ToLower(strings.TrimSpace(fc.Admin.Email)),
		Name:     strings.TrimSpace(fc.Admin.Name),
		Password: fc.Admin.Password,
	}
	if cat.Admin.Email == "" {
		return domain.SeedCatalog{}, fmt.Errorf("%w: admin email is required", ErrInvalidCatalog)
	}

	return cat, nil
}
