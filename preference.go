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

import "errors"

// preferenceClass orders an unsatisfied package by how likely picking it next
// is to avoid thrashing. Smaller sorts first.
type preferenceClass int

const (
	prefDirectOrigin preferenceClass = iota
	prefLocked
	prefNoChoice
	prefUseLatest
	prefDefault
)

// packageChoice is the total-order key choose_next_version ranks unsatisfied
// packages by: preference class, then (negated) upper-bounded-dependency
// count, then has-dependencies, then (negated) candidate count, with name as
// the final tiebreaker.
type packageChoice struct {
	name           Name
	class          preferenceClass
	negUpperBounds int
	lacksDeps      bool
	negNumVersions int
	candidates     []Version
}

// less reports whether a should be chosen before b.
func (a packageChoice) less(b packageChoice) bool {
	if a.class != b.class {
		return a.class < b.class
	}
	if a.negUpperBounds != b.negUpperBounds {
		return a.negUpperBounds < b.negUpperBounds
	}
	if a.lacksDeps != b.lacksDeps {
		return !a.lacksDeps
	}
	if a.negNumVersions != b.negNumVersions {
		return a.negNumVersions < b.negNumVersions
	}
	return a.name.Value() < b.name.Value()
}

// classify builds name's packageChoice key: its preference class (from the
// source's Provider-level locked/use-latest facts, when available), the
// candidate versions still allowed, and a peek at the top candidate's own
// dependencies to count upper bounds and detect dependency-less packages.
func (st *solverState) classify(name Name) (packageChoice, error) {
	allowed := st.partial.allowedSet(name)

	id := DefaultPackageID(name)
	filtered, err := st.candidateVersions(id, allowed)
	if err != nil {
		return packageChoice{}, err
	}

	// DirectOrigin (a concrete file/URL/VCS source) is not reachable here:
	// incompatibilities and assignments are indexed by bare Name, so a
	// pending package carries no per-dependency PackageID to classify by
	// source kind. A Provider that wants DirectOrigin priority can still
	// express it by returning NoChoice-equivalent single-candidate lists,
	// which this ranking already honors.
	class := prefDefault

	if provider, ok := st.source.(Provider); ok {
		placeholder := Dependency{Term: NewTerm(name, nil)}
		if _, found := provider.GetLocked(placeholder); found {
			if provider.UsesLatest(name) {
				class = prefUseLatest
			} else {
				class = prefLocked
			}
		}
	}

	if len(filtered) < 2 && class > prefNoChoice {
		class = prefNoChoice
	}

	negUpperBounds := 0
	hasDeps := false

	if len(filtered) > 0 {
		top := filtered[len(filtered)-1]
		deps := st.peekDependencies(id, top)
		hasDeps = len(deps) > 0
		for _, d := range deps {
			if isUpperBounded(d.Term) {
				negUpperBounds++
			}
		}
	}

	return packageChoice{
		name:           name,
		class:          class,
		negUpperBounds: -negUpperBounds,
		lacksDeps:      !hasDeps,
		negNumVersions: -len(filtered),
		candidates:     filtered,
	}, nil
}

// candidateVersions returns id's versions allowed under the current partial
// solution, routing through CachedSource.SearchAt (keyed to the decision
// level this classify call is scouting for) when the solver's source is a
// CachedSource, so repeated peeking during package selection benefits from
// the per-decision-level candidate cache; other sources fall back to a
// plain GetVersions call filtered in place.
func (st *solverState) candidateVersions(id PackageID, allowed VersionSet) ([]Version, error) {
	level := st.partial.decisionLvl + 1

	if cached, ok := st.source.(*CachedSource); ok {
		versions, err := cached.SearchAt(id, allowed, level)
		if err != nil {
			var pkgErr *PackageNotFoundError
			var verErr *PackageVersionNotFoundError
			if errors.As(err, &pkgErr) || errors.As(err, &verErr) {
				return nil, nil
			}
			return nil, err
		}
		return versions, nil
	}

	versions, err := st.source.GetVersions(id.Name)
	if err != nil {
		var pkgErr *PackageNotFoundError
		var verErr *PackageVersionNotFoundError
		if errors.As(err, &pkgErr) || errors.As(err, &verErr) {
			versions = nil
		} else {
			return nil, err
		}
	}

	filtered := make([]Version, 0, len(versions))
	for _, v := range versions {
		if allowed == nil || allowed.Contains(v) {
			filtered = append(filtered, v)
		}
	}
	return filtered, nil
}

// peekDependencies returns the dependency terms the top candidate declares,
// without registering anything into the partial solution. Used only to rank
// package choice; actual dependency registration happens after decide().
func (st *solverState) peekDependencies(id PackageID, version Version) []Dependency {
	if provider, ok := st.source.(Provider); ok {
		completed, err := provider.CompletePackage(id, version, st.options.Environment)
		if err == nil {
			return completed.Dependencies
		}
	}

	terms, err := st.source.GetDependencies(id.Name, version)
	if err != nil {
		return nil
	}
	deps := make([]Dependency, 0, len(terms))
	for _, t := range terms {
		deps = append(deps, Dependency{Term: t})
	}
	return deps
}

// isUpperBounded reports whether a positive term's allowed range has a
// finite upper bound on every one of its component intervals (e.g. "^1.0",
// "<2.0", but not a bare ">=1.0" or "*"). Only VersionIntervalSet-backed
// terms can be inspected this way; anything else is conservatively reported
// as unbounded (contributes 0 to the upper-bound count).
func isUpperBounded(term Term) bool {
	if !term.Positive {
		return false
	}
	set, ok := termAllowedSet(term)
	if !ok || set == nil {
		return false
	}
	iv, ok := set.(*VersionIntervalSet)
	if !ok {
		return false
	}
	if len(iv.intervals) == 0 {
		return false
	}
	for _, interval := range iv.intervals {
		if !interval.upper.isFinite() {
			return false
		}
	}
	return true
}

// chooseNextPackage selects the next unsatisfied package to decide, ranked
// by the preference total order, and returns its best candidate version
// (latest-allowed-first, matching the oracle's preferred order).
func (st *solverState) chooseNextPackage() (Name, Version, bool, error) {
	pending := st.partial.pendingPackages()
	if len(pending) == 0 {
		return EmptyName(), nil, false, nil
	}

	var best *packageChoice
	for _, name := range pending {
		choice, err := st.classify(name)
		if err != nil {
			return EmptyName(), nil, false, err
		}
		if best == nil || choice.less(*best) {
			c := choice
			best = &c
		}
	}

	if len(best.candidates) == 0 {
		return best.name, nil, false, nil
	}
	return best.name, best.candidates[len(best.candidates)-1], true, nil
}
