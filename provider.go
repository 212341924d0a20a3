// Copyright 2025 Contriboss
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pubgrub

import "fmt"

// SourceKind distinguishes where a package's distributable artifact comes
// from. It is part of a package's cache identity alongside its name.
type SourceKind int

const (
	SourceDefault SourceKind = iota
	SourceGit
	SourceURL
	SourcePath
	SourceLegacy
)

func (k SourceKind) String() string {
	switch k {
	case SourceGit:
		return "git"
	case SourceURL:
		return "url"
	case SourcePath:
		return "path"
	case SourceLegacy:
		return "legacy"
	default:
		return "default"
	}
}

// PackageID identifies a package by name plus source coordinates, matching
// the cache key a real package manager keys its candidate lookups on:
// (name, source type, source url, source reference, source subdirectory).
type PackageID struct {
	Name      Name
	Source    SourceKind
	URL       string
	Subdir    string
	Reference string
}

// String renders a PackageID for logging and cache diagnostics.
func (p PackageID) String() string {
	if p.Source == SourceDefault {
		return p.Name.Value()
	}
	return fmt.Sprintf("%s@%s(%s,%s,%s)", p.Name.Value(), p.Source, p.URL, p.Reference, p.Subdir)
}

// DefaultPackageID builds the common case: a registry package with no
// special source coordinates.
func DefaultPackageID(name Name) PackageID {
	return PackageID{Name: name}
}

// Dependency is a richer dependency declaration than a bare Term: it
// additionally carries whether the dependency is optional, which extras it
// activates, a Python-version constraint, and an environment marker.
type Dependency struct {
	Term      Term
	Optional  bool
	Features  []string
	PyVersion VersionSet
	Marker    Marker
}

// Applies reports whether dep should be considered at all under env: its
// marker must evaluate true and, if PyVersion is set, env's interpreter
// version (when known) must lie within it.
func (dep Dependency) Applies(env MarkerEnvironment) bool {
	if !dep.Marker.Evaluate(env) {
		return false
	}
	if dep.PyVersion != nil && env.PythonVersion != nil {
		return dep.PyVersion.Contains(env.PythonVersion)
	}
	return true
}

// CompletedPackage bundles a package version's materialized dependencies
// together with any incompatibilities the oracle wants unconditionally
// registered (for example, a PythonVersion-caused incompatibility derived
// from the package's declared interpreter requirement).
type CompletedPackage struct {
	ID           PackageID
	Version      Version
	Dependencies []Dependency

	// PyVersion is the candidate's own declared Python-interpreter
	// requirement (its "python_requires"), independent of any particular
	// dependency edge. nil means the candidate declares no such
	// requirement, so it is never compared against the root's range.
	PyVersion VersionSet

	Incompatibilities []*Incompatibility
}

// Provider is the full oracle contract: a Source plus the richer queries
// the solver loop uses to materialize a package's dependencies with
// markers resolved, fetch a previously-locked candidate, and check whether
// a package should prefer its latest version over a locked one.
//
// A Source implementation satisfies only the minimal interface the solver
// loop requires to run; implementing Provider in addition unlocks C.2/C.3
// marker evaluation and locked-version short-circuiting.
type Provider interface {
	Source

	// CompletePackage enriches a package version with markers resolved
	// against env and any package-level incompatibilities (e.g. Python or
	// platform requirements) it wants recorded.
	CompletePackage(id PackageID, version Version, env MarkerEnvironment) (CompletedPackage, error)

	// IncompatibilitiesFor returns incompatibilities that apply to a
	// package version independent of any particular dependency edge.
	IncompatibilitiesFor(id PackageID, version Version) ([]*Incompatibility, error)

	// GetLocked returns a previously-locked candidate for dep, if any.
	GetLocked(dep Dependency) (CompletedPackage, bool)

	// UsesLatest reports whether name should prefer its latest version
	// over a locked one, overriding GetLocked for that package.
	UsesLatest(name Name) bool
}

// AsProvider returns src as a Provider if it implements the full oracle
// contract, or a trivial adapter over Source otherwise. The adapter
// evaluates no markers and never reports a locked candidate, matching the
// behavior of a plain Source under an empty environment.
func AsProvider(src Source) Provider {
	if p, ok := src.(Provider); ok {
		return p
	}
	return sourceOnlyProvider{src}
}

type sourceOnlyProvider struct {
	Source
}

func (p sourceOnlyProvider) CompletePackage(id PackageID, version Version, _ MarkerEnvironment) (CompletedPackage, error) {
	terms, err := p.Source.GetDependencies(id.Name, version)
	if err != nil {
		return CompletedPackage{}, err
	}
	deps := make([]Dependency, 0, len(terms))
	for _, t := range terms {
		deps = append(deps, Dependency{Term: t, Marker: AlwaysMarker()})
	}
	return CompletedPackage{ID: id, Version: version, Dependencies: deps}, nil
}

func (p sourceOnlyProvider) IncompatibilitiesFor(PackageID, Version) ([]*Incompatibility, error) {
	return nil, nil
}

func (p sourceOnlyProvider) GetLocked(Dependency) (CompletedPackage, bool) {
	return CompletedPackage{}, false
}

func (p sourceOnlyProvider) UsesLatest(Name) bool {
	return true
}
