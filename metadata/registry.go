package metadata

import (
	"sort"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/typeforge/typeforge/errors"
)

// Factory constructs an Adapter over the given source. Factories are
// registered against a semver constraint describing the binary-format
// revisions they can decode.
type Factory func(src Source) (Adapter, error)

type registration struct {
	name       string
	constraint *semver.Constraints
	factory    Factory
}

var (
	registryMu sync.RWMutex
	registry   []registration
)

// Register adds an adapter factory for every format version matching the
// constraint (e.g. ">=29.0.0 <32.0.0"). Registration order breaks ties when
// multiple factories match a version: first match wins.
func Register(name, constraint string, factory Factory) error {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return errors.Wrapf(err, "invalid version constraint for adapter %q", name)
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = append(registry, registration{name: name, constraint: c, factory: factory})
	return nil
}

// ForVersion selects the adapter factory for a metadata format version.
// An unparseable or unsupported version is a source-availability failure:
// the run cannot begin without a decoder.
func ForVersion(version string) (Factory, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return nil, errors.Wrap(
			errors.Wrapf(errors.ErrSourceUnavailable, "metadata format version %q", version),
			err.Error())
	}

	registryMu.RLock()
	defer registryMu.RUnlock()
	for _, reg := range registry {
		if reg.constraint.Check(v) {
			return reg.factory, nil
		}
	}
	return nil, errors.Wrapf(errors.ErrSourceUnavailable,
		"no registered adapter decodes metadata format version %s (known: %v)",
		version, registeredNamesLocked())
}

func registeredNamesLocked() []string {
	names := make([]string, 0, len(registry))
	for _, reg := range registry {
		names = append(names, reg.name)
	}
	sort.Strings(names)
	return names
}
