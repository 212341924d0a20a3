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

// Term represents a dependency constraint, either positive or negative.
// A positive term (e.g., "lodash >=1.0.0") asserts that a package must satisfy
// the condition. A negative term (e.g., "not lodash ==1.5.0") excludes versions
// that match the condition.
//
// Terms are the building blocks of dependency resolution, combining package
// names with version constraints and polarity.
type Term struct {
	Name      Name
	Condition Condition
	Positive  bool
}

// String returns a human-readable representation of the term.
func (t Term) String() string {
	cond := "*"
	if t.Condition != nil {
		cond = t.Condition.String()
	}

	if t.Positive {
		if cond == "*" {
			return t.Name.Value()
		}
		return fmt.Sprintf("%s %s", t.Name.Value(), cond)
	}

	if cond == "*" {
		return fmt.Sprintf("not %s", t.Name.Value())
	}
	return fmt.Sprintf("not %s %s", t.Name.Value(), cond)
}

// NewTerm creates a positive term requiring the package to satisfy the condition.
func NewTerm(name Name, condition Condition) Term {
	return Term{Name: name, Condition: condition, Positive: true}
}

// NewNegativeTerm creates a negative term excluding versions matching the condition.
func NewNegativeTerm(name Name, condition Condition) Term {
	return Term{Name: name, Condition: condition, Positive: false}
}

// Negate returns the logical negation of the term.
// A positive term becomes negative and vice versa.
func (t Term) Negate() Term {
	return Term{
		Name:      t.Name,
		Condition: t.Condition,
		Positive:  !t.Positive,
	}
}

// IsPositive reports whether the term asserts a positive constraint.
func (t Term) IsPositive() bool {
	return t.Positive
}

// SatisfiedBy reports whether the provided version satisfies the term.
// A nil version indicates the package is not selected.
//
// For positive terms, returns true if the version matches the condition.
// For negative terms, returns true if the version does NOT match the condition.
func (t Term) SatisfiedBy(ver Version) bool {
	if ver == nil {
		return !t.Positive
	}

	if t.Condition == nil {
		return t.Positive
	}

	satisfied := t.Condition.Satisfies(ver)
	if t.Positive {
		return satisfied
	}
	return !satisfied
}

// TermRelation classifies how two terms over the same package relate to
// one another as version sets.
type TermRelation int

const (
	// RelationSubset means the receiver implies the other term.
	RelationSubset TermRelation = iota
	// RelationDisjoint means the two terms cannot both hold.
	RelationDisjoint
	// RelationOverlapping means neither SUBSET nor DISJOINT.
	RelationOverlapping
)

// Relation computes how t relates to other, which must reference the same
// package. It panics on a name mismatch, mirroring the programming-error
// class the original satisfier() and relation() checks guard against.
//
// The answer depends on both terms' polarity, not just their ranges: a
// negative term is vacuously true when the package is absent, so it can
// never imply a positive one, and two negations can never be disjoint.
func (t Term) Relation(other Term) TermRelation {
	if t.Name != other.Name {
		panic(fmt.Sprintf("term relation requested across different packages: %s vs %s", t.Name.Value(), other.Name.Value()))
	}

	self, selfOK := termRange(t)
	oth, othOK := termRange(other)
	if !selfOK || !othOK {
		return RelationOverlapping
	}

	switch {
	case t.Positive && other.Positive:
		switch {
		case self.IsSubset(oth):
			return RelationSubset
		case self.IsDisjoint(oth):
			return RelationDisjoint
		default:
			return RelationOverlapping
		}
	case t.Positive && !other.Positive:
		switch {
		case self.IsDisjoint(oth):
			return RelationSubset
		case self.IsSubset(oth):
			return RelationDisjoint
		default:
			return RelationOverlapping
		}
	case !t.Positive && other.Positive:
		// Never a subset: t holds when the package is omitted, other does
		// not.
		if oth.IsSubset(self) {
			return RelationDisjoint
		}
		return RelationOverlapping
	default:
		// Never disjoint: both hold when the package is omitted.
		if oth.IsSubset(self) {
			return RelationSubset
		}
		return RelationOverlapping
	}
}

// termRange returns the range a term constrains, regardless of polarity.
func termRange(t Term) (VersionSet, bool) {
	if t.Positive {
		return termAllowedSet(t)
	}
	return termForbiddenSet(t)
}

// Satisfies reports whether t.Relation(other) == RelationSubset, i.e. every
// version allowed by t is also allowed by other.
func (t Term) Satisfies(other Term) bool {
	return t.Relation(other) == RelationSubset
}

// Intersect combines two terms over the same package into the term
// representing their logical conjunction. Two positive terms intersect
// their allowed sets; two negative terms union their forbidden sets
// (forbidding either one forbids the pair); a mixed pair subtracts the
// negative's forbidden set from the positive's allowed set.
func (t Term) Intersect(other Term) Term {
	if t.Name != other.Name {
		panic(fmt.Sprintf("term intersect requested across different packages: %s vs %s", t.Name.Value(), other.Name.Value()))
	}

	switch {
	case t.Positive && other.Positive:
		a, _ := termAllowedSet(t)
		b, _ := termAllowedSet(other)
		return termFromAllowedSet(t.Name, intersectionOrFull(a, b))
	case !t.Positive && !other.Positive:
		a, _ := termForbiddenSet(t)
		b, _ := termForbiddenSet(other)
		return termFromForbiddenSet(t.Name, unionOrFull(a, b))
	case t.Positive && !other.Positive:
		return intersectPositiveNegative(t, other)
	default:
		return intersectPositiveNegative(other, t)
	}
}

// Difference returns the term representing t holding while other does not,
// defined as t.Intersect(other.Negate()).
func (t Term) Difference(other Term) Term {
	return t.Intersect(other.Negate())
}

func intersectPositiveNegative(pos, neg Term) Term {
	allowed, _ := termAllowedSet(pos)
	forbidden, _ := termForbiddenSet(neg)
	if allowed == nil {
		allowed = FullVersionSet()
	}
	if forbidden == nil {
		return termFromAllowedSet(pos.Name, allowed)
	}
	return termFromAllowedSet(pos.Name, allowed.Intersection(forbidden.Complement()))
}

func setFor(t Term) (VersionSet, bool) {
	if t.Positive {
		return termAllowedSet(t)
	}
	forbidden, ok := termForbiddenSet(t)
	if !ok {
		return nil, false
	}
	return forbidden.Complement(), true
}

func intersectionOrFull(a, b VersionSet) VersionSet {
	if a == nil {
		a = FullVersionSet()
	}
	if b == nil {
		b = FullVersionSet()
	}
	return a.Intersection(b)
}

func unionOrFull(a, b VersionSet) VersionSet {
	if a == nil {
		a = FullVersionSet()
	}
	if b == nil {
		b = FullVersionSet()
	}
	return a.Union(b)
}
