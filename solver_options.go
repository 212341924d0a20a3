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

// Logger is the narrow logging surface the solver needs. *logrus.Logger and
// *logrus.Entry both satisfy it, so callers can pass a pre-configured
// logrus instance with whatever hooks/formatters their application uses.
type Logger interface {
	WithFields(fields logrus.Fields) *logrus.Entry
}

// SolverOptions configures the behavior of the dependency solver.
//
// Options control:
//   - Incompatibility tracking for enhanced error reporting
//   - Maximum iteration limits to prevent infinite loops
//   - Debug logging for solver diagnostics
//   - The environment markers are evaluated against
//   - CacheLevels, a stored value that no part of the solver reads
type SolverOptions struct {
	// TrackIncompatibilities enables collecting learned clauses for error reporting.
	// When enabled, NoSolutionError will include a detailed derivation tree.
	// When disabled, returns simple ErrNoSolutionFound.
	TrackIncompatibilities bool

	// MaxSteps limits the number of solver iterations.
	// Set to 0 to disable the limit (not recommended for untrusted inputs).
	// Default: 100000
	MaxSteps int

	// Logger enables debug logging of solver operations.
	// When nil, no logging is performed.
	Logger Logger

	// Environment supplies the marker values (python_version, sys_platform,
	// ...) dependency markers are evaluated against. Defaults to an empty
	// environment, under which only unconditional dependencies apply.
	Environment MarkerEnvironment

	// CacheLevels is stored here but no part of the solver reads it:
	// CachedSource keeps every decision-level frame until ClearLevel drops
	// it, however many there are.
	CacheLevels int

	// RootPyVersion is the root project's supported Python-interpreter
	// range. When set, a candidate whose own CompletedPackage.PyVersion
	// doesn't overlap it yields a PythonVersion-caused incompatibility
	// instead of being silently considered. nil (the default) disables
	// the check.
	RootPyVersion VersionSet
}

// SolverOption is a functional option for configuring the solver.
type SolverOption func(*SolverOptions)

const defaultMaxSteps = 100000

// defaultSolverOptions returns the default solver configuration.
func defaultSolverOptions() SolverOptions {
	return SolverOptions{
		TrackIncompatibilities: false,
		MaxSteps:               defaultMaxSteps,
		Environment:            MarkerEnvironment{},
	}
}

// WithIncompatibilityTracking enables or disables incompatibility tracking.
// When enabled, the solver collects learned clauses and provides detailed
// error messages with derivation trees.
func WithIncompatibilityTracking(enabled bool) SolverOption {
	return func(opts *SolverOptions) {
		opts.TrackIncompatibilities = enabled
	}
}

// WithMaxSteps sets the maximum number of solver iterations.
// Use 0 to disable the limit (allows unbounded execution).
func WithMaxSteps(steps int) SolverOption {
	return func(opts *SolverOptions) {
		if steps <= 0 {
			opts.MaxSteps = 0
		} else {
			opts.MaxSteps = steps
		}
	}
}

// WithLogger sets the logger used for solver diagnostics.
//
// Example:
//
//	logger := logrus.New()
//	solver := NewSolverWithOptions(
//	    []Source{root, source},
//	    WithLogger(logger),
//	)
func WithLogger(logger Logger) SolverOption {
	return func(opts *SolverOptions) {
		opts.Logger = logger
	}
}

// WithEnvironment sets the marker environment dependency markers are
// evaluated against (python_version, sys_platform, extras, ...).
func WithEnvironment(env MarkerEnvironment) SolverOption {
	return func(opts *SolverOptions) {
		opts.Environment = env
	}
}

// WithCacheLevels sets SolverOptions.CacheLevels. Nothing reads that field,
// so it does not change how many frames CachedSource retains.
func WithCacheLevels(levels int) SolverOption {
	return func(opts *SolverOptions) {
		opts.CacheLevels = levels
	}
}

// WithRootPyVersion sets the root project's supported Python range,
// enabling the PythonVersion-conflict check against candidates' own
// declared interpreter requirement (CompletedPackage.PyVersion).
func WithRootPyVersion(r VersionSet) SolverOption {
	return func(opts *SolverOptions) {
		opts.RootPyVersion = r
	}
}

func (o *SolverOptions) logDebug(msg string, fields logrus.Fields) {
	if o.Logger == nil {
		return
	}
	o.Logger.WithFields(fields).Debug(msg)
}
