// Copyright 2024 The University of Queensland
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

import "slices"

// InMemorySource provides an in-memory implementation of Source for testing
// and simple use cases. It stores all package versions and dependencies in
// memory without any I/O operations.
//
// This is the simplest source implementation and is useful for:
//   - Testing dependency resolution scenarios
//   - Building example dependency graphs
//   - Prototyping before implementing a real package source
//
// For production use cases with network or database access, consider wrapping
// your source with CachedSource for performance.
//
// Example:
//
//	source := &InMemorySource{}
//	source.AddPackage(MakeName("lodash"), SimpleVersion("1.0.0"), []Term{
//	    NewTerm(MakeName("core-js"), EqualsCondition{Version: SimpleVersion("2.0.0")}),
//	})
//	source.AddPackage(MakeName("core-js"), SimpleVersion("2.0.0"), nil)
type InMemorySource struct {
	Packages map[Name]map[Version][]Term

	// Markers optionally pairs a marker with each dependency term at
	// Packages[name][version][i]; a missing or short entry defaults the
	// remaining terms to AlwaysMarker.
	Markers map[Name]map[Version][]Marker

	// Locked records a previously-resolved candidate per package, consulted
	// by GetLocked unless the package is also listed in Latest.
	Locked map[Name]Version

	// Latest marks packages that should always prefer their newest version
	// over any Locked entry.
	Latest map[Name]bool

	// PyVersions optionally records each package version's own declared
	// Python-interpreter requirement ("python_requires"), consulted by
	// CompletePackage to populate CompletedPackage.PyVersion.
	PyVersions map[Name]map[Version]VersionSet
}

// GetVersions returns all available versions of a package in sorted order.
func (s *InMemorySource) GetVersions(name Name) ([]Version, error) {
	versions, ok := s.Packages[name]
	if !ok {
		return nil, &PackageNotFoundError{Package: name}
	}

	var result []Version
	for v := range versions {
		result = append(result, v)
	}

	// sort the versions
	slices.SortFunc(result, func(a Version, b Version) int {
		return a.Sort(b)
	})

	return result, nil
}

// GetDependencies returns the dependency terms for a specific package version.
func (s *InMemorySource) GetDependencies(name Name, version Version) ([]Term, error) {
	versions, ok := s.Packages[name]
	if !ok {
		return nil, &PackageNotFoundError{Package: name}
	}

	if _, ok := versions[version]; !ok {
		return nil, &PackageVersionNotFoundError{Package: name, Version: version}
	}

	return s.Packages[name][version], nil
}

// AddPackage adds a package version with its dependencies to the source.
// If the package map is nil, it will be initialized automatically.
func (s *InMemorySource) AddPackage(name Name, version Version, deps []Term) {
	if s.Packages == nil {
		s.Packages = make(map[Name]map[Version][]Term)
	}

	if _, ok := s.Packages[name]; !ok {
		s.Packages[name] = make(map[Version][]Term)
	}

	s.Packages[name][version] = deps
}

// CompletePackage materializes name@version's stored dependency terms into
// Dependency values, pairing each with its declared marker (AlwaysMarker if
// none was recorded).
func (s *InMemorySource) CompletePackage(id PackageID, version Version, _ MarkerEnvironment) (CompletedPackage, error) {
	terms, err := s.GetDependencies(id.Name, version)
	if err != nil {
		return CompletedPackage{}, err
	}

	markers := s.Markers[id.Name][version]
	deps := make([]Dependency, 0, len(terms))
	for i, t := range terms {
		marker := AlwaysMarker()
		if i < len(markers) {
			marker = markers[i]
		}
		deps = append(deps, Dependency{Term: t, Marker: marker})
	}

	return CompletedPackage{ID: id, Version: version, Dependencies: deps, PyVersion: s.PyVersions[id.Name][version]}, nil
}

// IncompatibilitiesFor returns no package-level incompatibilities; the
// in-memory source expresses its only package-level requirement (a
// python_requires range) through CompletedPackage.PyVersion instead, so the
// solver can compare it against the root's declared range.
func (s *InMemorySource) IncompatibilitiesFor(PackageID, Version) ([]*Incompatibility, error) {
	return nil, nil
}

// SetPyVersion records version's python_requires range, consulted by
// CompletePackage.
func (s *InMemorySource) SetPyVersion(name Name, version Version, r VersionSet) {
	if s.PyVersions == nil {
		s.PyVersions = make(map[Name]map[Version]VersionSet)
	}
	if s.PyVersions[name] == nil {
		s.PyVersions[name] = make(map[Version]VersionSet)
	}
	s.PyVersions[name][version] = r
}

// GetLocked returns the recorded locked version for dep's package, if any
// and not overridden by Latest.
func (s *InMemorySource) GetLocked(dep Dependency) (CompletedPackage, bool) {
	if s.Latest[dep.Term.Name] {
		return CompletedPackage{}, false
	}
	version, ok := s.Locked[dep.Term.Name]
	if !ok {
		return CompletedPackage{}, false
	}
	completed, err := s.CompletePackage(DefaultPackageID(dep.Term.Name), version, MarkerEnvironment{})
	if err != nil {
		return CompletedPackage{}, false
	}
	return completed, true
}

// UsesLatest reports whether name should ignore any Locked entry.
func (s *InMemorySource) UsesLatest(name Name) bool {
	if s.Latest == nil {
		return true
	}
	if _, locked := s.Locked[name]; !locked {
		return true
	}
	return s.Latest[name]
}

var (
	_ Source   = &InMemorySource{}
	_ Provider = &InMemorySource{}
)
