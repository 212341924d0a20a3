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

// Reporter formats a failure incompatibility into a human-readable message.
type Reporter interface {
	Report(incomp *Incompatibility) string
}

// reportLine is one line of the rendered failure, optionally numbered so a
// later line can refer back to it as "(n)".
type reportLine struct {
	text   string
	number int // 0 means unnumbered
}

// FailureWriter renders the derivation DAG rooted at a SolveFailure
// incompatibility into the numbered "Because X, Y" narrative style. Reused
// instances are not safe for concurrent use.
type FailureWriter struct {
	parents map[*Incompatibility]int
	numbers map[*Incompatibility]int
	lines   []reportLine
	nextNum int
}

// NewFailureWriter returns a writer ready to render a single failure.
func NewFailureWriter() *FailureWriter {
	return &FailureWriter{
		parents: make(map[*Incompatibility]int),
		numbers: make(map[*Incompatibility]int),
	}
}

// Write renders root (the SolveFailure incompatibility) into the final
// report text.
func (w *FailureWriter) Write(root *Incompatibility) string {
	if root == nil {
		return "no solution found"
	}

	w.countParents(root, make(map[*Incompatibility]bool))

	var preamble string
	seenPython := make(map[*Incompatibility]bool)
	for ext := range root.ExternalIncompatibilities {
		if ext.Cause.Kind == CausePythonVersion && !seenPython[ext] {
			seenPython[ext] = true
			preamble += fmt.Sprintf("The current project's supported Python range (%s) is not compatible with %s, which requires Python %s.\n",
				ext.Cause.RootRange, ext.packageLabel(), ext.Cause.PackageRange)
		}
	}

	w.visit(root, false)

	return w.format(preamble, len(seenPython) > 0)
}

// countParents walks the Conflict DAG from root, incrementing a node's
// parent count each time it is reached from a different parent. Nodes
// visited more than once are the ones the write pass numbers.
func (w *FailureWriter) countParents(inc *Incompatibility, onPath map[*Incompatibility]bool) {
	if onPath[inc] {
		return
	}
	if inc.Cause.Kind != CauseConflict {
		return
	}

	onPath[inc] = true
	for _, child := range []*Incompatibility{inc.Cause.Conflict, inc.Cause.Other} {
		w.parents[child]++
		w.countParents(child, onPath)
	}
	delete(onPath, inc)
}

func (w *FailureWriter) isNumbered(inc *Incompatibility) bool {
	_, ok := w.numbers[inc]
	return ok
}

func (w *FailureWriter) numberOf(inc *Incompatibility) int {
	if n, ok := w.numbers[inc]; ok {
		return n
	}
	w.nextNum++
	w.numbers[inc] = w.nextNum
	return w.nextNum
}

// collapsible reports whether derived occurs only once in the DAG and its
// own cause is a Conflict with exactly one Conflict-caused child, making it
// safe to fold its sentence into its parent's rather than emit its own line.
func collapsible(derived *Incompatibility, parents map[*Incompatibility]int) bool {
	if derived.Cause.Kind != CauseConflict {
		return false
	}
	if parents[derived] > 1 {
		return false
	}
	conflictChildren := 0
	for _, child := range []*Incompatibility{derived.Cause.Conflict, derived.Cause.Other} {
		if child.Cause.Kind == CauseConflict {
			conflictChildren++
		}
	}
	return conflictChildren == 1
}

func singleLine(inc *Incompatibility) bool {
	if inc.Cause.Kind != CauseConflict {
		return true
	}
	return inc.Cause.Conflict.Cause.Kind != CauseConflict && inc.Cause.Other.Cause.Kind != CauseConflict
}

// visit emits inc's sentence (and, recursively, whatever of its ancestry is
// needed first), following the branching rules spelled out for the failure
// writer: a conjunction of two already-written incompatibilities collapses
// to a single "Because a and b, inc." sentence; a single un-numbered
// ancestor is visited first and referenced by "And because".
func (w *FailureWriter) visit(inc *Incompatibility, isConclusion bool) {
	if inc.Cause.Kind != CauseConflict {
		w.emit(inc, inc.String(), false)
		return
	}

	a, b := inc.Cause.Conflict, inc.Cause.Other
	aConflict := a.Cause.Kind == CauseConflict
	bConflict := b.Cause.Kind == CauseConflict

	switch {
	case aConflict && bConflict:
		switch {
		case w.isNumbered(a) && w.isNumbered(b):
			w.emit(inc, fmt.Sprintf("Because %s, %s.", andToString(w, a, b), inc.String()), isConclusion)
		case w.isNumbered(a):
			w.visit(b, false)
			w.emit(inc, fmt.Sprintf("And because %s (%d), %s.", a.String(), w.numberOf(a), inc.String()), isConclusion)
		case w.isNumbered(b):
			w.visit(a, false)
			w.emit(inc, fmt.Sprintf("And because %s (%d), %s.", b.String(), w.numberOf(b), inc.String()), isConclusion)
		case singleLine(a) || singleLine(b):
			// Visit the longer derivation first so the single-line one sits
			// right next to the conclusion it feeds.
			first, second := a, b
			if singleLine(a) && !singleLine(b) {
				first, second = b, a
			}
			w.visit(first, false)
			w.visit(second, false)
			w.emit(inc, fmt.Sprintf("Thus, %s.", inc.String()), isConclusion)
		default:
			w.visit(a, true)
			w.lines = append(w.lines, reportLine{text: ""})
			w.visit(b, false)
			w.emit(inc, fmt.Sprintf("And because %s (%d), %s.", a.String(), w.numberOf(a), inc.String()), isConclusion)
		}
	case aConflict || bConflict:
		derived, ext := a, b
		if bConflict {
			derived, ext = b, a
		}
		switch {
		case w.isNumbered(derived):
			w.emit(inc, fmt.Sprintf("Because %s, %s.", andToString(w, ext, derived), inc.String()), isConclusion)
		case collapsible(derived, w.parents):
			// Fold derived's own sentence into this one: recurse into its
			// conflict-caused child and join its external child with ext.
			deeper, shallower := derived.Cause.Conflict, derived.Cause.Other
			if shallower.Cause.Kind == CauseConflict {
				deeper, shallower = shallower, deeper
			}
			w.visit(deeper, false)
			w.emit(inc, fmt.Sprintf("And because %s, %s.", andToString(w, shallower, ext), inc.String()), isConclusion)
		default:
			w.visit(derived, false)
			w.emit(inc, fmt.Sprintf("And because %s, %s.", ext.String(), inc.String()), isConclusion)
		}
	default:
		w.emit(inc, fmt.Sprintf("Because %s, %s.", andToString(w, a, b), inc.String()), isConclusion)
	}
}

// lineRef renders " (n)" for an already-numbered incompatibility, or "".
func (w *FailureWriter) lineRef(inc *Incompatibility) string {
	if w.isNumbered(inc) {
		return fmt.Sprintf(" (%d)", w.numberOf(inc))
	}
	return ""
}

func partitionTerms(inc *Incompatibility) (positives, negatives []Term) {
	for _, t := range inc.Terms {
		if t.Positive {
			positives = append(positives, t)
		} else {
			negatives = append(negatives, t)
		}
	}
	return positives, negatives
}

func joinNegated(negatives []Term) string {
	parts := make([]string, 0, len(negatives))
	for _, t := range negatives {
		parts = append(parts, t.Negate().String())
	}
	return strings.Join(parts, " or ")
}

// dependencyVerb picks the connective for a cause: true dependency edges
// read "depends on", everything else "requires".
func dependencyVerb(inc *Incompatibility) string {
	if inc.Cause.Kind == CauseDependency {
		return "depends on"
	}
	return "requires"
}

// requirerHead renders the positive side of an incompatibility as the
// subject of a joined sentence: "X depends on " / "X requires " for a
// single positive term, "if X and Y then " for several.
func requirerHead(inc *Incompatibility, positives []Term) (string, bool) {
	if len(positives) == 0 {
		return "", false
	}
	if len(positives) == 1 {
		return dependerLabel(positives[0]) + " " + dependencyVerb(inc) + " ", true
	}
	parts := make([]string, 0, len(positives))
	for _, t := range positives {
		parts = append(parts, t.String())
	}
	return "if " + strings.Join(parts, " and ") + " then ", true
}

// termImplies reports whether a is at least as strong as b over the same
// package, i.e. a.Relation(b) is RelationSubset (the satisfies check the
// joined-sentence patterns use).
func termImplies(a, b Term) bool {
	if a.Name != b.Name {
		return false
	}
	return a.Relation(b) == RelationSubset
}

// tryRequiresBoth renders "X depends on both A (1) and B (2)" when a and b
// each pivot on a single positive term over the same package.
func tryRequiresBoth(w *FailureWriter, a, b *Incompatibility) (string, bool) {
	if len(a.Terms) == 1 || len(b.Terms) == 1 {
		return "", false
	}
	posA, negsA := partitionTerms(a)
	posB, negsB := partitionTerms(b)
	if len(posA) != 1 || len(posB) != 1 || posA[0].Name != posB[0].Name {
		return "", false
	}
	if len(negsA) == 0 || len(negsB) == 0 {
		return "", false
	}

	verb := "requires"
	if a.Cause.Kind == CauseDependency && b.Cause.Kind == CauseDependency {
		verb = "depends on"
	}
	return fmt.Sprintf("%s %s both %s%s and %s%s",
		dependerLabel(posA[0]), verb,
		joinNegated(negsA), w.lineRef(a),
		joinNegated(negsB), w.lineRef(b)), true
}

// tryRequiresThrough renders the transitive chain "X depends on Y (1) which
// depends on Z (2)" when one side's negative term is the inverse of the
// other side's sole positive term.
func tryRequiresThrough(w *FailureWriter, a, b *Incompatibility) (string, bool) {
	if len(a.Terms) == 1 || len(b.Terms) == 1 {
		return "", false
	}

	posA, negsA := partitionTerms(a)
	posB, negsB := partitionTerms(b)

	var prior, latter *Incompatibility
	var priorNegative Term
	var priorPositives, latterNegatives []Term

	switch {
	case len(negsA) == 1 && len(posB) == 1 && termImplies(negsA[0].Negate(), posB[0]):
		prior, latter = a, b
		priorNegative = negsA[0]
		priorPositives, latterNegatives = posA, negsB
	case len(negsB) == 1 && len(posA) == 1 && termImplies(negsB[0].Negate(), posA[0]):
		prior, latter = b, a
		priorNegative = negsB[0]
		priorPositives, latterNegatives = posB, negsA
	default:
		return "", false
	}

	head, ok := requirerHead(prior, priorPositives)
	if !ok || len(latterNegatives) == 0 {
		return "", false
	}

	return fmt.Sprintf("%s%s%s which %s %s%s",
		head, priorNegative.Negate().String(), w.lineRef(prior),
		dependencyVerb(latter), joinNegated(latterNegatives), w.lineRef(latter)), true
}

// tryRequiresForbidden renders "X depends on Y (1) which doesn't match any
// versions / requires Python … / doesn't exist / is forbidden" when one of
// the two incompatibilities is a single-term statement about a package the
// other forbids.
func tryRequiresForbidden(w *FailureWriter, a, b *Incompatibility) (string, bool) {
	if len(a.Terms) != 1 && len(b.Terms) != 1 {
		return "", false
	}

	prior, latter := a, b
	if len(a.Terms) == 1 {
		prior, latter = b, a
	}

	positives, negatives := partitionTerms(prior)
	if len(negatives) != 1 {
		return "", false
	}
	forbidden := latter.Terms[0]
	if !termImplies(negatives[0].Negate(), forbidden) {
		return "", false
	}

	head, ok := requirerHead(prior, positives)
	if !ok {
		return "", false
	}

	var tail string
	switch latter.Cause.Kind {
	case CauseNoVersions:
		tail = "which doesn't match any versions"
	case CausePythonVersion:
		tail = fmt.Sprintf("which requires Python %s", latter.Cause.PackageRange)
	case CausePackageNotFound:
		tail = "which doesn't exist"
	default:
		tail = "which is forbidden"
	}

	var subject string
	if forbidden.Positive {
		subject = forbidden.String()
	} else {
		subject = forbidden.Negate().String()
	}

	return fmt.Sprintf("%s%s%s %s%s",
		head, subject, w.lineRef(prior), tail, w.lineRef(latter)), true
}

// andToString joins two incompatibility descriptions into one sentence,
// trying the requires-both, requires-through, and requires-forbidden
// patterns in order before falling back to "<a> and <b>" with any assigned
// line numbers.
func andToString(w *FailureWriter, a, b *Incompatibility) string {
	if s, ok := tryRequiresBoth(w, a, b); ok {
		return s
	}
	if s, ok := tryRequiresThrough(w, a, b); ok {
		return s
	}
	if s, ok := tryRequiresForbidden(w, a, b); ok {
		return s
	}
	return a.String() + w.lineRef(a) + " and " + b.String() + w.lineRef(b)
}

func (w *FailureWriter) emit(inc *Incompatibility, text string, isConclusion bool) {
	number := 0
	if w.parents[inc] > 1 || isConclusion {
		number = w.numberOf(inc)
	}
	w.lines = append(w.lines, reportLine{text: text, number: number})
}

// format lays out the buffered lines, prefixing numbered lines with "(n)"
// and padding unnumbered lines to match, collapsing consecutive blanks.
func (w *FailureWriter) format(preamble string, hasPythonCause bool) string {
	width := 0
	for _, l := range w.lines {
		if l.number > 0 {
			prefix := fmt.Sprintf("(%d) ", l.number)
			if len(prefix) > width {
				width = len(prefix)
			}
		}
	}

	var b strings.Builder
	if preamble != "" {
		b.WriteString(preamble)
		b.WriteString("\n")
	}

	lastBlank := false
	for _, l := range w.lines {
		if l.text == "" {
			if lastBlank {
				continue
			}
			b.WriteString("\n")
			lastBlank = true
			continue
		}
		lastBlank = false
		if l.number > 0 {
			prefix := fmt.Sprintf("(%d) ", l.number)
			b.WriteString(prefix)
			b.WriteString(strings.Repeat(" ", width-len(prefix)))
		} else if width > 0 {
			b.WriteString(strings.Repeat(" ", width))
		}
		b.WriteString(l.text)
		b.WriteString("\n")
	}

	if hasPythonCause {
		b.WriteString("\nTo fix this, adjust the project's python requirement so it intersects the offending packages' supported range.\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// DefaultReporter renders a failure with the full numbered DAG narrative.
type DefaultReporter struct{}

func (r *DefaultReporter) Report(incomp *Incompatibility) string {
	return NewFailureWriter().Write(incomp)
}

// CollapsedReporter renders a failure as a flat chain of "Because ..."
// sentences without DAG numbering, for callers that want a terser message.
type CollapsedReporter struct{}

func (r *CollapsedReporter) Report(incomp *Incompatibility) string {
	if incomp == nil {
		return "no solution found"
	}

	var lines []string
	r.collectLines(incomp, &lines, make(map[*Incompatibility]bool))

	if len(lines) == 0 {
		return "version solving failed"
	}

	result := lines[0]
	for i := 1; i < len(lines); i++ {
		result += "\nAnd because " + lines[i]
	}
	return result
}

func (r *CollapsedReporter) collectLines(incomp *Incompatibility, lines *[]string, visited map[*Incompatibility]bool) {
	if visited[incomp] {
		return
	}
	visited[incomp] = true

	if incomp.Cause.Kind != CauseConflict {
		*lines = append(*lines, incomp.String())
		return
	}

	r.collectLines(incomp.Cause.Conflict, lines, visited)
	r.collectLines(incomp.Cause.Other, lines, visited)
	*lines = append(*lines, incomp.String())
}
