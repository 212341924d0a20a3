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

import (
	"fmt"
	"strings"
)

// CauseKind tags the variant held by a Cause. Two independent taxonomies
// existed in the material this package is grounded on (an incompatibility
// cause and a distinct conflict-cause type); this module settles on the one
// flat enum below rather than carrying both.
type CauseKind int

const (
	CauseRoot CauseKind = iota
	CauseNoVersions
	CauseDependency
	CausePackageNotFound
	CausePythonVersion
	CausePlatform
	CauseConflict
)

// Cause records why an Incompatibility was derived. Only the fields
// relevant to Kind are populated.
type Cause struct {
	Kind CauseKind

	// CausePackageNotFound
	Err error

	// CausePythonVersion
	PackageRange VersionSet
	RootRange    VersionSet

	// CausePlatform
	Platform string

	// CauseConflict — pointer identity doubles as the arena reference the
	// failure writer needs for parent-counting; Go's GC makes that safe
	// without a separate integer-id table.
	Conflict *Incompatibility
	Other    *Incompatibility
}

// Incompatibility represents a set of terms that cannot all hold at once.
type Incompatibility struct {
	Terms []Term
	Cause Cause
}

func newRawIncompatibility(terms []Term, cause Cause) *Incompatibility {
	return &Incompatibility{Terms: terms, Cause: cause}
}

// NewIncompatibility builds an Incompatibility applying the normalization
// invariants: terms for the same package are merged via intersection,
// positive terms for a package evict negative terms for that same package
// once at least two terms share it, and a positive root term is dropped
// from conflict-derived incompatibilities (the root is always selected, so
// asserting it is never informative).
func NewIncompatibility(terms []Term, cause Cause) *Incompatibility {
	merged := mergeTermsByPackage(terms)

	if cause.Kind == CauseConflict {
		filtered := merged[:0]
		for _, t := range merged {
			if t.Positive && isRootTerm(t) {
				continue
			}
			filtered = append(filtered, t)
		}
		merged = filtered
	}

	return newRawIncompatibility(merged, cause)
}

func isRootTerm(t Term) bool {
	return t.Name == MakeName("$$root")
}

// mergeTermsByPackage folds every term for a package into one via
// Term.Intersect, in first-mention order. The mixed-polarity intersection
// subtracts the negative's forbidden range from the positive's allowed one,
// so a negative term's constraint narrows the merged result rather than
// being dropped. An empty merge means the terms were mutually exclusive —
// an incompatibility built from them would assert nothing, so constructing
// one is a program-state error (a package listed as conflicting with
// itself).
func mergeTermsByPackage(terms []Term) []Term {
	order := make([]Name, 0, len(terms))
	byName := make(map[Name]Term)
	for _, t := range terms {
		existing, ok := byName[t.Name]
		if !ok {
			order = append(order, t.Name)
			byName[t.Name] = t
			continue
		}
		merged := existing.Intersect(t)
		if mergedTermEmpty(merged) {
			panic(fmt.Sprintf("corrupt incompatibility: terms for %s merge to an empty set", t.Name.Value()))
		}
		byName[t.Name] = merged
	}

	out := make([]Term, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out
}

// mergedTermEmpty reports whether a merged term denotes the empty positive
// constraint. A negative term is never empty in this sense: even one
// forbidding every version is satisfied by omitting the package.
func mergedTermEmpty(t Term) bool {
	if !t.Positive {
		return false
	}
	set, ok := termAllowedSet(t)
	return ok && set.IsEmpty()
}

// IsFailure reports whether this incompatibility proves the root
// requirement is unsatisfiable: it has no terms at all, or its only term is
// the negated root.
func (inc *Incompatibility) IsFailure() bool {
	if len(inc.Terms) == 0 {
		return true
	}
	if len(inc.Terms) == 1 {
		t := inc.Terms[0]
		return isRootTerm(t) && !t.Positive
	}
	return false
}

// ExternalIncompatibilities yields inc itself if it was not derived from a
// conflict, or recurses into both of its causes otherwise. It is used by
// the failure writer to find the externally-caused leaves of a derivation
// DAG (e.g. to collect PythonVersion causes for the preamble).
func (inc *Incompatibility) ExternalIncompatibilities(yield func(*Incompatibility) bool) {
	inc.yieldExternal(yield)
}

func (inc *Incompatibility) yieldExternal(yield func(*Incompatibility) bool) bool {
	if inc.Cause.Kind != CauseConflict {
		return yield(inc)
	}
	return inc.Cause.Conflict.yieldExternal(yield) && inc.Cause.Other.yieldExternal(yield)
}

// String renders a human-readable description of the incompatibility,
// following the per-cause templates: dependency edges read "X depends on
// Y" (with "every version of X" when X's term is universal), structural
// causes get fixed templates, and the general case partitions positive and
// negative terms into an "if ... then ..." sentence.
func (inc *Incompatibility) String() string {
	switch inc.Cause.Kind {
	case CauseRoot:
		return "the root requirement is unsatisfiable"
	case CauseNoVersions:
		return fmt.Sprintf("No versions of %s match %s", inc.Terms[0].Name.Value(), conditionOf(inc.Terms[0]))
	case CausePackageNotFound:
		return fmt.Sprintf("%s could not be found: %s", inc.Terms[0].Name.Value(), inc.Cause.Err)
	case CausePythonVersion:
		return fmt.Sprintf("%s requires Python %s, which is incompatible with the project's supported range %s",
			inc.packageLabel(), inc.Cause.PackageRange, inc.Cause.RootRange)
	case CausePlatform:
		return fmt.Sprintf("%s only supports the %s platform", inc.packageLabel(), inc.Cause.Platform)
	case CauseDependency:
		return inc.dependencyString()
	default:
		return inc.generalString()
	}
}

func (inc *Incompatibility) packageLabel() string {
	for _, t := range inc.Terms {
		if t.Positive {
			return dependerLabel(t)
		}
	}
	if len(inc.Terms) > 0 {
		return inc.Terms[0].Name.Value()
	}
	return "<unknown>"
}

// dependerLabel renders the positive side of a dependency edge: a pinned
// depender reads "foo 1.2.0", an unconstrained one "every version of foo",
// and a ranged one keeps the range syntax.
func dependerLabel(t Term) string {
	switch cond := t.Condition.(type) {
	case nil:
		return fmt.Sprintf("every version of %s", t.Name.Value())
	case EqualsCondition:
		return fmt.Sprintf("%s %s", t.Name.Value(), cond.Version)
	case *EqualsCondition:
		if cond != nil {
			return fmt.Sprintf("%s %s", t.Name.Value(), cond.Version)
		}
		return fmt.Sprintf("every version of %s", t.Name.Value())
	default:
		return fmt.Sprintf("%s %s", t.Name.Value(), cond.String())
	}
}

func conditionOf(t Term) string {
	if t.Condition == nil {
		return "every version"
	}
	return t.Condition.String()
}

func (inc *Incompatibility) dependencyString() string {
	if len(inc.Terms) != 2 {
		return inc.generalString()
	}
	dependent, dependency := inc.Terms[0], inc.Terms[1]
	if !dependent.Positive {
		dependent, dependency = dependency, dependent
	}
	dep := dependency
	if !dep.Positive {
		dep = dep.Negate()
	}

	return fmt.Sprintf("%s depends on %s", dependerLabel(dependent), dep)
}

func (inc *Incompatibility) generalString() string {
	if len(inc.Terms) == 0 {
		return "version solving failed"
	}
	if len(inc.Terms) == 1 {
		t := inc.Terms[0]
		if !t.Positive {
			return fmt.Sprintf("%s is required", t.Negate())
		}
		return fmt.Sprintf("%s is forbidden", t)
	}

	var positives, negatives []Term
	for _, t := range inc.Terms {
		if t.Positive {
			positives = append(positives, t)
		} else {
			negatives = append(negatives, t)
		}
	}

	if len(inc.Terms) == 2 && len(positives) == 1 && len(negatives) == 1 {
		return fmt.Sprintf("%s requires %s", positives[0], negatives[0].Negate())
	}

	var posParts, negParts []string
	for _, t := range positives {
		posParts = append(posParts, t.String())
	}
	for _, t := range negatives {
		negParts = append(negParts, t.Negate().String())
	}

	if len(posParts) == 0 {
		return fmt.Sprintf("one of %s must be selected", strings.Join(negParts, " or "))
	}
	if len(negParts) == 0 {
		return fmt.Sprintf("%s are incompatible", strings.Join(posParts, " and "))
	}
	return fmt.Sprintf("if %s then %s", strings.Join(posParts, " and "), strings.Join(negParts, " or "))
}

// NewIncompatibilityRoot builds the single incompatibility every solve
// begins with: {not root}. No version of anything is allowed until the
// root's own requirement has been satisfied.
func NewIncompatibilityRoot(rootTerm Term) *Incompatibility {
	return NewIncompatibility([]Term{rootTerm.Negate()}, Cause{Kind: CauseRoot})
}

// NewIncompatibilityNoVersions builds the incompatibility recorded when a
// package has no versions satisfying term.
func NewIncompatibilityNoVersions(term Term) *Incompatibility {
	return NewIncompatibility([]Term{term}, Cause{Kind: CauseNoVersions})
}

// NewIncompatibilityPackageNotFound builds the incompatibility recorded
// when the oracle fails to locate a package at all.
func NewIncompatibilityPackageNotFound(term Term, err error) *Incompatibility {
	return NewIncompatibility([]Term{term}, Cause{Kind: CausePackageNotFound, Err: err})
}

// NewIncompatibilityFromDependency builds {pkg@ver, not dependency},
// i.e. "pkg@ver depends on dependency".
func NewIncompatibilityFromDependency(pkg Name, ver Version, dependency Term) *Incompatibility {
	base := NewTerm(pkg, EqualsCondition{Version: ver})
	return NewIncompatibility([]Term{base, dependency.Negate()}, Cause{Kind: CauseDependency})
}

// NewIncompatibilityPythonVersion builds the incompatibility recorded when
// a package's Python requirement cannot overlap the project's.
func NewIncompatibilityPythonVersion(term Term, pkgRange, rootRange VersionSet) *Incompatibility {
	return NewIncompatibility([]Term{term}, Cause{Kind: CausePythonVersion, PackageRange: pkgRange, RootRange: rootRange})
}

// NewIncompatibilityPlatform builds the incompatibility recorded when a
// package only supports a platform the environment does not provide.
func NewIncompatibilityPlatform(term Term, platform string) *Incompatibility {
	return NewIncompatibility([]Term{term}, Cause{Kind: CausePlatform, Platform: platform})
}

// NewIncompatibilityConflict builds a derived incompatibility learned
// during conflict resolution, recording both contributing incompatibilities
// so the failure writer can later walk the derivation DAG.
func NewIncompatibilityConflict(terms []Term, cause1, cause2 *Incompatibility) *Incompatibility {
	return NewIncompatibility(terms, Cause{Kind: CauseConflict, Conflict: cause1, Other: cause2})
}
