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

import "fmt"

// assignmentKind distinguishes between decision and derivation assignments.
// Decision assignments pin a package to one concrete version. Derivation
// assignments record a constraint unit propagation forced from an
// incompatibility.
type assignmentKind int

const (
	assignmentDecision   assignmentKind = iota // Explicit version selection
	assignmentDerivation                       // Constraint derived from propagation
)

// assignment is one entry in the partial solution's append-only log. A
// decision carries the selected version; a derivation carries the term
// propagation derived, the allowed or forbidden set it contributes, and
// the incompatibility that forced it. decisionLevel and index support
// backjumping and satisfier ordering respectively.
type assignment struct {
	name          Name             // Package name
	term          Term             // The constraint term
	kind          assignmentKind   // Decision or derivation
	allowed       VersionSet       // Allowed version set (positive terms)
	forbidden     VersionSet       // Forbidden version set (negative terms)
	version       Version          // Selected version (for decisions)
	cause         *Incompatibility // Incompatibility that caused this (for derivations)
	decisionLevel int              // Decision level for backtracking
	index         int              // Assignment index for satisfier ordering
}

// isDecision returns true if this assignment is an explicit version selection
// rather than a derived constraint.
func (a *assignment) isDecision() bool {
	return a.kind == assignmentDecision
}

// describe renders the assignment for debug snapshots: the selected version
// for a decision, the derived term plus the incompatibility that forced it
// for a derivation.
func (a *assignment) describe() string {
	if a.isDecision() {
		return fmt.Sprintf("[%d@L%d] decide %s %s", a.index, a.decisionLevel, a.name.Value(), a.version)
	}
	cause := "<none>"
	if a.cause != nil {
		cause = a.cause.String()
	}
	return fmt.Sprintf("[%d@L%d] derive %s because %s", a.index, a.decisionLevel, a.term, cause)
}
