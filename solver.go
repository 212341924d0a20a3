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

import "github.com/sirupsen/logrus"

// Solver implements the PubGrub dependency resolution algorithm with CDCL.
//
// The solver uses Conflict-Driven Clause Learning (CDCL) to efficiently
// find valid package version assignments that satisfy all dependencies
// and constraints. It maintains learned incompatibilities to avoid
// repeating failed resolution attempts.
//
// Basic usage:
//
//	root := NewRootSource()
//	root.AddPackage(MakeName("myapp"), EqualsCondition{Version: SimpleVersion("1.0.0")})
//
//	source := &InMemorySource{}
//	// ... populate source with packages ...
//
//	solver := NewSolver(root, source)
//	solution, err := solver.Solve(root.Term())
//
// With options:
//
//	solver := NewSolverWithOptions(
//	    []Source{root, source},
//	    WithIncompatibilityTracking(true),
//	    WithMaxSteps(10000),
//	)
type Solver struct {
	Source  Source
	options SolverOptions

	learned            []*Incompatibility
	attemptedSolutions int
}

// AttemptedSolutions returns the number of distinct decision attempts the
// most recent Solve call made, counting the initial pass plus one for each
// subsequent backjump that led to a new decision. Useful for diagnosing how
// much thrashing a particular dependency graph causes.
func (s *Solver) AttemptedSolutions() int {
	return s.attemptedSolutions
}

// NewSolver creates a new solver with default options from multiple sources.
// Several sources are combined into a single CombinedSource that tries each source in order;
// a single source is used as is.
//
// Example:
//
//	root := NewRootSource()
//	source := &InMemorySource{}
//	solver := NewSolver(root, source)
func NewSolver(sources ...Source) *Solver {
	return NewSolverWithOptions(sources)
}

func NewSolverWithOptions(sources []Source, opts ...SolverOption) *Solver {
	options := defaultSolverOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	// A lone source keeps its concrete type, so wrapping the whole universe
	// in a CachedSource enables the decision-level candidate cache.
	var source Source = CombinedSource(sources)
	if len(sources) == 1 {
		source = sources[0]
	}

	return &Solver{
		Source:  source,
		options: options,
		learned: nil,
	}
}

func (s *Solver) Configure(opts ...SolverOption) *Solver {
	for _, opt := range opts {
		if opt != nil {
			opt(&s.options)
		}
	}
	return s
}

func (s *Solver) EnableIncompatibilityTracking() *Solver {
	return s.Configure(WithIncompatibilityTracking(true))
}

func (s *Solver) DisableIncompatibilityTracking() *Solver {
	return s.Configure(WithIncompatibilityTracking(false))
}

func (s *Solver) GetIncompatibilities() []*Incompatibility {
	return s.learned
}

func (s *Solver) ClearIncompatibilities() {
	clear(s.learned)
	s.learned = s.learned[:0]
}

func (s *Solver) Solve(root Term) (Solution, error) {
	s.options.logDebug("starting solver", logrus.Fields{"root": root.String()})

	state := newSolverState(s.Source, s.options, root.Name)
	state.addIncompatibility(NewIncompatibilityRoot(root))

	version, err := extractDecisionVersion(root)
	if err != nil {
		return nil, err
	}

	assign := state.partial.seedRoot(root.Name, version)

	s.options.logDebug("seeded root", logrus.Fields{"package": root.Name.Value(), "version": version.String()})

	var conflict *Incompatibility
	if depConflict, err := state.completeAndRegister(root.Name, version); err != nil {
		return nil, err
	} else if depConflict != nil {
		conflict = depConflict
	}

	state.enqueue(assign.name)

	var propagateSeed Name

	for steps := 0; ; steps++ {
		if s.options.MaxSteps > 0 && steps >= s.options.MaxSteps {
			return nil, ErrIterationLimit{Steps: s.options.MaxSteps}
		}

		if conflict != nil {
			if s.options.Logger != nil {
				s.options.logDebug("resolving conflict", logrus.Fields{
					"step":     steps,
					"conflict": conflict.String(),
					"partial":  state.partial.snapshot(),
				})
			}
			backtrackLevel, pivot, err := state.resolveConflict(conflict)
			if err != nil {
				if ns, ok := err.(*NoSolutionError); ok {
					return s.fail(state, ns.Incompatibility)
				}
				return nil, err
			}
			if cached, ok := s.Source.(*CachedSource); ok {
				cached.ClearLevel(backtrackLevel)
			}
			conflict = nil
			if pivot != EmptyName() {
				propagateSeed = pivot
			}
			continue
		}

		seed := propagateSeed
		propagateSeed = EmptyName()
		propConflict, err := state.propagate(seed)
		if err != nil {
			return nil, err
		}
		if propConflict != nil {
			conflict = propConflict
			continue
		}

		if state.partial.isComplete() {
			s.attemptedSolutions = state.partial.attemptedSolutions
			return state.partial.buildSolution(), nil
		}

		nextPkg, ver, found, err := state.chooseNextPackage()
		if err != nil {
			return nil, err
		}
		if nextPkg == EmptyName() {
			s.options.logDebug("solution found", logrus.Fields{"step": steps})
			s.attemptedSolutions = state.partial.attemptedSolutions
			return state.partial.buildSolution(), nil
		}

		s.options.logDebug("selecting package", logrus.Fields{"step": steps, "package": nextPkg.Value()})
		if !found {
			allowed := state.partial.allowedSet(nextPkg)
			term := termFromAllowedSet(nextPkg, allowed)
			if nfErr := state.packageNotFound(nextPkg); nfErr != nil {
				conflict = NewIncompatibilityPackageNotFound(term, nfErr)
			} else {
				conflict = NewIncompatibilityNoVersions(term)
			}

			if support := state.partial.latest(nextPkg); support != nil && support.cause != nil {
				conflict = resolveIncompatibility(conflict, support.cause, nextPkg)
			}
			state.addIncompatibility(conflict)
			continue
		}

		s.options.logDebug("completing candidate", logrus.Fields{"step": steps, "package": nextPkg.Value(), "version": ver.String()})

		completed, err := state.completePackage(nextPkg, ver)
		if err != nil {
			return nil, err
		}

		registered, err := state.registerPackageIncompatibilities(nextPkg, ver, completed)
		if err != nil {
			return nil, err
		}

		if candidateExcluded(nextPkg, ver, registered) {
			// A package-level incompatibility (e.g. a Python-version
			// mismatch) already rules this candidate out; let propagation
			// rediscover it from the store instead of committing a
			// decision that would just be backtracked.
			state.enqueue(nextPkg)
			continue
		}

		s.options.logDebug("making decision", logrus.Fields{"step": steps, "package": nextPkg.Value(), "version": ver.String()})

		assign := state.partial.addDecision(nextPkg, ver)

		if depConflict, err := state.applyDependencyEdges(nextPkg, ver, completed); err != nil {
			return nil, err
		} else if depConflict != nil {
			conflict = depConflict
			continue
		}

		state.enqueue(assign.name)
	}
}

func extractDecisionVersion(root Term) (Version, error) {
	if !root.Positive {
		return nil, &VersionError{Package: root.Name, Message: "root term must be positive"}
	}

	switch cond := root.Condition.(type) {
	case EqualsCondition:
		return cond.Version, nil
	case *EqualsCondition:
		if cond == nil {
			return nil, &VersionError{Package: root.Name, Message: "root condition missing version"}
		}
		return cond.Version, nil
	default:
		return nil, &VersionError{Package: root.Name, Message: "root must pin exact version"}
	}
}

func (s *Solver) fail(state *solverState, incomp *Incompatibility) (Solution, error) {
	if state != nil {
		s.attemptedSolutions = state.partial.attemptedSolutions
	}
	if s.options.TrackIncompatibilities {
		if state != nil {
			s.learned = append([]*Incompatibility{}, state.learned...)
		}
		if incomp == nil {
			term := fallbackTerm(nil)
			incomp = NewIncompatibilityNoVersions(term)
		}
		return nil, NewNoSolutionError(incomp)
	}

	term := fallbackTerm(incomp)
	return nil, ErrNoSolutionFound{Term: term}
}

func fallbackTerm(incomp *Incompatibility) Term {
	if incomp == nil || len(incomp.Terms) == 0 {
		return NewTerm(MakeName("$$root"), nil)
	}
	term := incomp.Terms[0]
	if !term.Positive {
		term = term.Negate()
	}
	return term
}
