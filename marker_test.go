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
	"strings"
	"testing"
)

func TestMarkerEvaluate(t *testing.T) {
	t.Parallel()

	py38 := mustSemver(t, "3.8.0")
	py311 := mustSemver(t, "3.11.0")
	atLeast310 := mustParseVersionRange(t, ">=3.10.0")

	linuxEnv := MarkerEnvironment{SysPlatform: "linux", PythonVersion: py311}
	winEnv := MarkerEnvironment{SysPlatform: "win32", PythonVersion: py38}

	tests := []struct {
		name   string
		marker Marker
		env    MarkerEnvironment
		want   bool
	}{
		{"always", AlwaysMarker(), MarkerEnvironment{}, true},
		{"python version in range", Marker{Kind: MarkerPythonVersion, Range: atLeast310}, linuxEnv, true},
		{"python version below range", Marker{Kind: MarkerPythonVersion, Range: atLeast310}, winEnv, false},
		{"python version unknown env", Marker{Kind: MarkerPythonVersion, Range: atLeast310}, MarkerEnvironment{}, true},
		{"platform match", Marker{Kind: MarkerSysPlatform, Value: "linux"}, linuxEnv, true},
		{"platform mismatch", Marker{Kind: MarkerSysPlatform, Value: "win32"}, linuxEnv, false},
		{"platform negated", Marker{Kind: MarkerSysPlatform, Value: "win32", Negate: true}, linuxEnv, true},
		{"extra present", Marker{Kind: MarkerExtra, Value: "tls"}, MarkerEnvironment{Extras: map[string]bool{"tls": true}}, true},
		{"extra absent", Marker{Kind: MarkerExtra, Value: "tls"}, MarkerEnvironment{}, false},
		{
			"and requires every child",
			AndMarker(
				Marker{Kind: MarkerSysPlatform, Value: "linux"},
				Marker{Kind: MarkerPythonVersion, Range: atLeast310},
			),
			linuxEnv, true,
		},
		{
			"and fails on one child",
			AndMarker(
				Marker{Kind: MarkerSysPlatform, Value: "linux"},
				Marker{Kind: MarkerPythonVersion, Range: atLeast310},
			),
			winEnv, false,
		},
		{
			"or succeeds on one child",
			OrMarker(
				Marker{Kind: MarkerSysPlatform, Value: "darwin"},
				Marker{Kind: MarkerSysPlatform, Value: "linux"},
			),
			linuxEnv, true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.marker.Evaluate(tt.env); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMarkerString(t *testing.T) {
	t.Parallel()

	m := AndMarker(
		Marker{Kind: MarkerSysPlatform, Value: "linux"},
		Marker{Kind: MarkerExtra, Value: "tls", Negate: true},
	)
	got := m.String()
	for _, want := range []string{`sys_platform == "linux"`, `extra != "tls"`, " and "} {
		if !strings.Contains(got, want) {
			t.Errorf("expected marker string to contain %q, got %q", want, got)
		}
	}
}

// TestSolverSkipsDependencyBehindForeignMarker checks the marker plumbing
// end to end: a dependency guarded by a sys_platform marker only becomes a
// constraint when the solver's environment matches it.
func TestSolverSkipsDependencyBehindForeignMarker(t *testing.T) {
	build := func(platform string) (Solution, error) {
		source := &InMemorySource{}
		source.AddPackage(MakeName("app"), SimpleVersion("1.0.0"), []Term{
			NewTerm(MakeName("winlib"), EqualsCondition{Version: SimpleVersion("1.0.0")}),
		})
		source.AddPackage(MakeName("winlib"), SimpleVersion("1.0.0"), nil)
		source.Markers = map[Name]map[Version][]Marker{
			MakeName("app"): {
				SimpleVersion("1.0.0"): {
					{Kind: MarkerSysPlatform, Value: "win32"},
				},
			},
		}

		root := NewRootSource()
		root.AddPackage(MakeName("app"), EqualsCondition{Version: SimpleVersion("1.0.0")})

		solver := NewSolverWithOptions(
			[]Source{root, source},
			WithEnvironment(MarkerEnvironment{SysPlatform: platform}),
		)
		return solver.Solve(root.Term())
	}

	linuxSolution, err := build("linux")
	if err != nil {
		t.Fatalf("linux solve failed: %v", err)
	}
	if _, ok := linuxSolution.GetVersion(MakeName("winlib")); ok {
		t.Error("expected winlib to be skipped on linux")
	}

	winSolution, err := build("win32")
	if err != nil {
		t.Fatalf("win32 solve failed: %v", err)
	}
	if _, ok := winSolution.GetVersion(MakeName("winlib")); !ok {
		t.Error("expected winlib to be selected on win32")
	}
}

// TestSolverReportsMissingPackage checks that a dependency on a package the
// oracle has never heard of surfaces as a "could not be found" failure
// rather than a bare no-matching-versions one.
func TestSolverReportsMissingPackage(t *testing.T) {
	source := &InMemorySource{}
	source.AddPackage(MakeName("app"), SimpleVersion("1.0.0"), []Term{
		NewTerm(MakeName("ghost"), EqualsCondition{Version: SimpleVersion("1.0.0")}),
	})

	root := NewRootSource()
	root.AddPackage(MakeName("app"), EqualsCondition{Version: SimpleVersion("1.0.0")})

	solver := NewSolver(root, source).EnableIncompatibilityTracking()
	_, err := solver.Solve(root.Term())
	if err == nil {
		t.Fatal("expected solving to fail")
	}

	msg := err.Error()
	if !strings.Contains(msg, "ghost") {
		t.Errorf("expected the message to name the missing package, got: %s", msg)
	}
	if !strings.Contains(msg, "doesn't exist") && !strings.Contains(msg, "could not be found") {
		t.Errorf("expected a missing-package message, got: %s", msg)
	}

	nsErr, ok := err.(*NoSolutionError)
	if !ok {
		t.Fatalf("expected *NoSolutionError, got %T", err)
	}
	found := false
	nsErr.Incompatibility.ExternalIncompatibilities(func(inc *Incompatibility) bool {
		if inc.Cause.Kind == CausePackageNotFound {
			found = true
			return false
		}
		return true
	})
	if !found {
		t.Error("expected a PackageNotFound cause in the failure's derivation")
	}
}
