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

import "errors"

// solverState bundles everything a single Solve call needs: the source of
// versions/dependencies, the evolving partial solution, and the global
// incompatibility index used by unit propagation.
type solverState struct {
	source            Source
	options           SolverOptions
	partial           *partialSolution
	incompatibilities map[Name][]*Incompatibility
	learned           []*Incompatibility
	queue             []Name
	queued            map[Name]bool
	contradicted      map[*Incompatibility]int
}

func newSolverState(source Source, options SolverOptions, root Name) *solverState {
	return &solverState{
		source:            source,
		options:           options,
		partial:           newPartialSolution(root),
		incompatibilities: make(map[Name][]*Incompatibility),
		learned:           make([]*Incompatibility, 0),
		queue:             make([]Name, 0),
		queued:            make(map[Name]bool),
		contradicted:      make(map[*Incompatibility]int),
	}
}

func (st *solverState) enqueue(name Name) {
	if name == EmptyName() || st.queued[name] {
		return
	}
	st.queue = append(st.queue, name)
	st.queued[name] = true
}

func (st *solverState) dequeue() (Name, bool) {
	if len(st.queue) == 0 {
		return EmptyName(), false
	}
	name := st.queue[0]
	st.queue = st.queue[1:]
	delete(st.queued, name)
	return name, true
}

func (st *solverState) addIncompatibility(incomp *Incompatibility) {
	for _, term := range incomp.Terms {
		// Insert at the front so the reverse-insertion-order scan in
		// propagate sees the most recently learned incompatibilities for a
		// package first, without needing to reverse the slice on every pop.
		st.incompatibilities[term.Name] = append([]*Incompatibility{incomp}, st.incompatibilities[term.Name]...)
	}
	if st.options.TrackIncompatibilities {
		st.learned = append(st.learned, incomp)
	}
}

// propagate drains a changed-set seeded with start (when non-empty),
// scanning each package's incompatibilities in reverse insertion order so
// later, more general incompatibilities are checked first.
func (st *solverState) propagate(start Name) (*Incompatibility, error) {
	if start != EmptyName() {
		st.enqueue(start)
	}

	for {
		pkg, ok := st.dequeue()
		if !ok {
			return nil, nil
		}

		for _, inc := range st.incompatibilities[pkg] {
			if st.contradicted[inc] > 0 {
				continue
			}

			relation, unsatisfied, err := st.evaluateIncompatibility(inc)
			if err != nil {
				return nil, err
			}

			switch relation {
			case relationContradicted:
				st.contradicted[inc] = max(st.partial.decisionLvl, 1)
			case relationSatisfied:
				return inc, nil
			case relationAlmostSatisfied:
				if unsatisfied == nil {
					continue
				}
				st.contradicted[inc] = max(st.partial.decisionLvl, 1)
				assign, changed, err := st.partial.addDerivation(unsatisfied.Negate(), inc)
				if errors.Is(err, errNoAllowedVersions) {
					return inc, nil
				}
				if err != nil {
					return nil, err
				}
				if changed && assign != nil {
					st.enqueue(assign.name)
				}
			}
		}
	}
}

// packageNotFound reports the oracle's not-found error for name, or nil
// when the package exists and merely has no versions inside the allowed
// range. Used to pick between a PackageNotFound and a NoVersions cause.
func (st *solverState) packageNotFound(name Name) error {
	_, err := st.source.GetVersions(name)
	var pkgErr *PackageNotFoundError
	if errors.As(err, &pkgErr) {
		return pkgErr
	}
	return nil
}

// uncontradict un-marks every incompatibility whose contradicted level is
// above level, called after backtracking so the next propagate pass
// re-examines clauses whose contradiction depended on assignments that no
// longer exist.
func (st *solverState) uncontradict(level int) {
	for inc, at := range st.contradicted {
		if at > level {
			delete(st.contradicted, inc)
		}
	}
}

type incompatibilityRelation int

const (
	relationSatisfied incompatibilityRelation = iota
	relationAlmostSatisfied
	relationContradicted
	relationInconclusive
)

func (st *solverState) evaluateIncompatibility(inc *Incompatibility) (incompatibilityRelation, *Term, error) {
	var unsatisfied *Term

	for _, term := range inc.Terms {
		allowed := st.partial.allowedSet(term.Name)
		rel, err := relationForTerm(term, allowed, st.partial.hasAssignments(term.Name))
		if err != nil {
			return relationInconclusive, nil, err
		}

		switch rel {
		case relationContradicted:
			return relationContradicted, nil, nil
		case relationSatisfied:
			continue
		case relationInconclusive:
			if unsatisfied != nil {
				return relationInconclusive, nil, nil
			}
			temp := term
			unsatisfied = &temp
		}
	}

	if unsatisfied == nil {
		return relationSatisfied, nil, nil
	}
	return relationAlmostSatisfied, unsatisfied, nil
}

func relationForTerm(term Term, allowed VersionSet, hasAssignment bool) (incompatibilityRelation, error) {
	if allowed == nil {
		allowed = FullVersionSet()
	}

	if term.Positive {
		required, ok := termAllowedSet(term)
		if !ok {
			return relationInconclusive, nil
		}
		if allowed.IsSubset(required) {
			if hasAssignment {
				return relationSatisfied, nil
			}
			return relationInconclusive, nil
		}
		if allowed.IsDisjoint(required) {
			return relationContradicted, nil
		}
		return relationInconclusive, nil
	}

	forbidden, ok := termForbiddenSet(term)
	if !ok {
		return relationInconclusive, nil
	}

	if allowed.IsDisjoint(forbidden) {
		return relationSatisfied, nil
	}
	if allowed.IsSubset(forbidden) {
		if hasAssignment {
			return relationContradicted, nil
		}
		return relationInconclusive, nil
	}
	return relationInconclusive, nil
}

// resolveIncompatibility combines conflict and cause into the learned
// incompatibility: pkg's own terms (the pivot package that was just derived
// or decided) are dropped from both sides, and the constructor's
// merge-by-intersection folds any package both sides still mention.
func resolveIncompatibility(conflict, cause *Incompatibility, pkg Name) *Incompatibility {
	terms := make([]Term, 0, len(conflict.Terms)+len(cause.Terms))
	for _, term := range conflict.Terms {
		if term.Name != pkg {
			terms = append(terms, term)
		}
	}
	for _, term := range cause.Terms {
		if term.Name != pkg {
			terms = append(terms, term)
		}
	}
	return NewIncompatibilityConflict(terms, conflict, cause)
}

func (st *solverState) registerDependencies(pkg Name, version Version, deps []Term) (*Incompatibility, error) {
	for _, dep := range deps {
		incomp := NewIncompatibilityFromDependency(pkg, version, dep)
		st.addIncompatibility(incomp)
		conflict, err := st.applyConstraint(dep, incomp)
		if err != nil {
			return nil, err
		}
		if conflict != nil {
			return conflict, nil
		}
	}
	return nil, nil
}

// completePackage materializes pkg@version's dependencies through the
// Provider contract when the source implements it (C.3), so markers and
// PyVersion are resolved against the solver's environment. Sources that
// only implement the minimal Source interface fall back to a bare
// GetDependencies-backed CompletedPackage with no markers/PyVersion.
func (st *solverState) completePackage(pkg Name, version Version) (CompletedPackage, error) {
	provider, ok := st.source.(Provider)
	if !ok {
		deps, err := st.source.GetDependencies(pkg, version)
		if err != nil {
			return CompletedPackage{}, &DependencyError{Package: pkg, Version: version, Err: err}
		}
		terms := make([]Dependency, 0, len(deps))
		for _, t := range deps {
			terms = append(terms, Dependency{Term: t, Marker: AlwaysMarker()})
		}
		return CompletedPackage{ID: DefaultPackageID(pkg), Version: version, Dependencies: terms}, nil
	}

	id := DefaultPackageID(pkg)
	completed, err := provider.CompletePackage(id, version, st.options.Environment)
	if err != nil {
		return CompletedPackage{}, &DependencyError{Package: pkg, Version: version, Err: err}
	}
	return completed, nil
}

// registerPackageIncompatibilities registers every incompatibility that
// applies to pkg@version independent of its dependency edges: a derived
// PythonVersion incompatibility when its own declared interpreter range
// (completed.PyVersion) doesn't overlap the root's, plus whatever
// CompletePackage and IncompatibilitiesFor already hand back. It returns
// the newly registered incompatibilities so the caller can check whether
// pkg@version is already excluded before calling decide.
func (st *solverState) registerPackageIncompatibilities(pkg Name, version Version, completed CompletedPackage) ([]*Incompatibility, error) {
	var registered []*Incompatibility

	if completed.PyVersion != nil && st.options.RootPyVersion != nil && completed.PyVersion.IsDisjoint(st.options.RootPyVersion) {
		term := NewTerm(pkg, EqualsCondition{Version: version})
		inc := NewIncompatibilityPythonVersion(term, completed.PyVersion, st.options.RootPyVersion)
		st.addIncompatibility(inc)
		registered = append(registered, inc)
	}

	for _, inc := range completed.Incompatibilities {
		st.addIncompatibility(inc)
		registered = append(registered, inc)
	}

	provider, ok := st.source.(Provider)
	if !ok {
		return registered, nil
	}

	extra, err := provider.IncompatibilitiesFor(completed.ID, version)
	if err != nil {
		return registered, &DependencyError{Package: pkg, Version: version, Err: err}
	}
	for _, inc := range extra {
		st.addIncompatibility(inc)
		registered = append(registered, inc)
	}

	return registered, nil
}

// candidateExcluded reports whether version is already ruled out by one of
// incs: true when an incompatibility's sole term is a positive assertion
// about pkg that version itself satisfies (e.g. the PythonVersion
// incompatibility registerPackageIncompatibilities just added for this
// exact candidate). Lets the caller skip a decision that would just be
// backtracked.
func candidateExcluded(pkg Name, version Version, incs []*Incompatibility) bool {
	for _, inc := range incs {
		if len(inc.Terms) != 1 {
			continue
		}
		t := inc.Terms[0]
		if t.Name != pkg || !t.Positive {
			continue
		}
		if t.SatisfiedBy(version) {
			return true
		}
	}
	return false
}

// applyDependencyEdges registers pkg@version's dependency-edge
// incompatibilities and derives their consequences now that pkg@version
// has been decided.
func (st *solverState) applyDependencyEdges(pkg Name, version Version, completed CompletedPackage) (*Incompatibility, error) {
	terms := make([]Term, 0, len(completed.Dependencies))
	for _, dep := range completed.Dependencies {
		if !dep.Applies(st.options.Environment) {
			continue
		}
		terms = append(terms, dep.Term)
	}
	return st.registerDependencies(pkg, version, terms)
}

// completeAndRegister is the root-bootstrap path: it completes pkg@version,
// registers every incompatibility it yields (package-level and
// dependency-edge alike), and applies the dependency-edge derivations
// immediately. This matches the pre-decision seeding Solve does for the
// root package, which is already decided at decision level 0 by the time
// this runs, so there is no decide to skip.
func (st *solverState) completeAndRegister(pkg Name, version Version) (*Incompatibility, error) {
	completed, err := st.completePackage(pkg, version)
	if err != nil {
		return nil, err
	}
	if _, err := st.registerPackageIncompatibilities(pkg, version, completed); err != nil {
		return nil, err
	}
	return st.applyDependencyEdges(pkg, version, completed)
}

func (st *solverState) applyConstraint(term Term, cause *Incompatibility) (*Incompatibility, error) {
	assign, _, err := st.partial.addDerivation(term, cause)
	if errors.Is(err, errNoAllowedVersions) {
		// The partial solution already excludes every version term allows,
		// which means term's negation holds and cause's remaining terms
		// were satisfied before this call: cause itself is the satisfied
		// incompatibility, and conflict resolution starts from it.
		if cause != nil {
			return cause, nil
		}
		base := NewIncompatibilityNoVersions(term)
		st.addIncompatibility(base)
		return base, nil
	}
	if err != nil {
		return nil, err
	}
	if assign != nil {
		st.enqueue(assign.name)
	}
	return nil, nil
}

// resolveConflict implements the CDCL backjumping loop: repeatedly merge
// conflict with the cause of its most recent satisfier until either a
// decision-level jump is warranted or the conflict proves unsatisfiable. It
// returns the decision level backtracked to (for CachedSource.ClearLevel)
// and the pivot package name propagation should resume from.
func (st *solverState) resolveConflict(conflict *Incompatibility) (int, Name, error) {
	derived := false
	for {
		if conflict.IsFailure() {
			return 0, EmptyName(), NewNoSolutionError(conflict)
		}

		satisfier, satisfiedTerm := st.partial.satisfierTerm(conflict)
		if satisfier == nil {
			return 0, EmptyName(), NewNoSolutionError(conflict)
		}

		prevLevel := st.partial.previousDecisionLevel(conflict, satisfier)

		// When the satisfier's own term carries more precision than the
		// incompatibility term it was chosen to satisfy, fold in the
		// decision level at which that extra precision (D, the difference
		// between the two) was itself established.
		if d, ok := satisfierDifference(satisfier, satisfiedTerm); ok {
			if dSatisfier := st.partial.satisfierOfTerm(d.Negate()); dSatisfier != nil && dSatisfier.decisionLevel > prevLevel {
				prevLevel = dSatisfier.decisionLevel
			}
		}

		if prevLevel < 1 {
			prevLevel = 1
		}

		if satisfier.decisionLevel == 0 && satisfier.isDecision() {
			return 0, EmptyName(), NewNoSolutionError(conflict)
		}

		if satisfier.isDecision() || prevLevel < satisfier.decisionLevel {
			st.partial.backtrack(prevLevel)
			st.uncontradict(prevLevel)
			if derived {
				st.addIncompatibility(conflict)
			}
			return prevLevel, satisfier.name, nil
		}

		if satisfier.cause == nil {
			return 0, EmptyName(), errors.New("derived assignment missing cause")
		}

		conflict = resolveIncompatibility(conflict, satisfier.cause, satisfier.name)
		derived = true
	}
}

// satisfierDifference computes D, the satisfier's own term minus the
// incompatibility term it was chosen to satisfy. ok is false when the
// satisfier's term alone already implies that term, meaning there is no
// extra precision to trace back to an earlier assignment.
func satisfierDifference(satisfier *assignment, term Term) (Term, bool) {
	if satisfier.term.Name != term.Name {
		return Term{}, false
	}
	if satisfier.term.Relation(term) == RelationSubset {
		return Term{}, false
	}
	return satisfier.term.Difference(term), true
}
