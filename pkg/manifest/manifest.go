package manifest

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/pkgindex/pkg/version"
)

// Manifest is a package's metadata for one specific version.
type Manifest struct {
	ID           PackageID    `yaml:"PackageIdentifier"`
	Version      string       `yaml:"PackageVersion"`
	Channel      string       `yaml:"Channel,omitempty"`
	Dependencies Dependencies `yaml:"Dependencies,omitempty"`
	Installers   []Installer  `yaml:"Installers,omitempty"`
}

// Installer is one installer variant of a manifest.
type Installer struct {
	Architecture string       `yaml:"Architecture,omitempty"`
	Dependencies Dependencies `yaml:"Dependencies,omitempty"`
}

// Dependencies is the dependency block shared by manifests and installers.
type Dependencies struct {
	PackageDependencies  []PackageDependency `yaml:"PackageDependencies,omitempty"`
	WindowsFeatures      []string            `yaml:"WindowsFeatures,omitempty"`
	WindowsLibraries     []string            `yaml:"WindowsLibraries,omitempty"`
	ExternalDependencies []string            `yaml:"ExternalDependencies,omitempty"`
}

type PackageDependency struct {
	PackageIdentifier PackageID `yaml:"PackageIdentifier"`
	MinimumVersion    string    `yaml:"MinimumVersion,omitempty"`
}

// ParsedVersion returns the manifest's own version.
func (m *Manifest) ParsedVersion() (version.Version, error) {
	return version.Parse(m.Version)
}

// AllDependencies gathers every declared dependency across the manifest and
// all of its installers. Installer variants are assumed to agree, so entries
// for the same target collapse into one.
func (m *Manifest) AllDependencies() (DependencyList, error) {
	var list DependencyList
	if err := m.Dependencies.addTo(&list); err != nil {
		return DependencyList{}, err
	}
	for i := range m.Installers {
		if err := m.Installers[i].Dependencies.addTo(&list); err != nil {
			return DependencyList{}, fmt.Errorf("installer %d: %w", i, err)
		}
	}
	return list, nil
}

// PackageDependencies returns only the package-kind dependencies.
func (m *Manifest) PackageDependencies() (DependencyList, error) {
	all, err := m.AllDependencies()
	if err != nil {
		return DependencyList{}, err
	}
	return all.OfKind(KindPackage), nil
}

func (d Dependencies) addTo(list *DependencyList) error {
	for _, pd := range d.PackageDependencies {
		minVersion, err := version.ParseOptional(pd.MinimumVersion)
		if err != nil {
			return fmt.Errorf("dependency %s: %w", pd.PackageIdentifier, err)
		}
		list.Add(Dependency{Kind: KindPackage, ID: pd.PackageIdentifier, MinVersion: minVersion})
	}
	for _, f := range d.WindowsFeatures {
		list.Add(Dependency{Kind: KindFeature, ID: PackageID(f)})
	}
	for _, l := range d.WindowsLibraries {
		list.Add(Dependency{Kind: KindLibrary, ID: PackageID(l)})
	}
	for _, e := range d.ExternalDependencies {
		list.Add(Dependency{Kind: KindExternal, ID: PackageID(e)})
	}
	return nil
}

// Load loads and parses a manifest from a YAML file
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data)
}

// Parse parses a manifest from YAML
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// Save writes a manifest to a YAML file
func Save(m *Manifest, path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// FieldError is a schema problem found by Validate.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// Validate performs basic schema validation on a manifest
func Validate(m *Manifest) []FieldError {
	var errs []FieldError

	if strings.TrimSpace(string(m.ID)) == "" {
		errs = append(errs, FieldError{Field: "PackageIdentifier", Message: "package identifier is required"})
	}
	if strings.TrimSpace(m.Version) == "" {
		errs = append(errs, FieldError{Field: "PackageVersion", Message: "package version is required"})
	} else if _, err := version.Parse(m.Version); err != nil {
		errs = append(errs, FieldError{Field: "PackageVersion", Message: err.Error()})
	}

	check := func(prefix string, d Dependencies) {
		for i, pd := range d.PackageDependencies {
			field := fmt.Sprintf("%sDependencies.PackageDependencies[%d]", prefix, i)
			if strings.TrimSpace(string(pd.PackageIdentifier)) == "" {
				errs = append(errs, FieldError{Field: field + ".PackageIdentifier", Message: "package identifier is required"})
			}
			if _, err := version.ParseOptional(pd.MinimumVersion); err != nil {
				errs = append(errs, FieldError{Field: field + ".MinimumVersion", Message: err.Error()})
			}
		}
	}
	check("", m.Dependencies)
	for i, inst := range m.Installers {
		check(fmt.Sprintf("Installers[%d].", i), inst.Dependencies)
	}

	return errs
}
