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

import "testing"

func rangeTerm(t *testing.T, name, expr string, positive bool) Term {
	t.Helper()
	set := mustParseVersionRange(t, expr)
	term := NewTerm(MakeName(name), NewVersionSetCondition(set))
	if !positive {
		term = term.Negate()
	}
	return term
}

// termsEquivalent compares two terms by the version sets they denote, so a
// positive term and the double negation of the same range compare equal.
func termsEquivalent(a, b Term) bool {
	setA, okA := setFor(a)
	setB, okB := setFor(b)
	if !okA || !okB {
		return false
	}
	return setsEqual(setA, setB)
}

func TestTermIntersectCommutative(t *testing.T) {
	t.Parallel()

	pairs := [][2]Term{
		{rangeTerm(t, "lib", ">=1.0.0, <2.0.0", true), rangeTerm(t, "lib", ">=1.5.0", true)},
		{rangeTerm(t, "lib", ">=1.0.0, <2.0.0", true), rangeTerm(t, "lib", ">=1.5.0", false)},
		{rangeTerm(t, "lib", "<1.0.0", false), rangeTerm(t, "lib", ">=2.0.0", false)},
	}

	for _, pair := range pairs {
		ab := pair[0].Intersect(pair[1])
		ba := pair[1].Intersect(pair[0])
		if !termsEquivalent(ab, ba) {
			t.Errorf("intersect not commutative: %s vs %s", ab, ba)
		}
	}
}

func TestTermIntersectIdempotent(t *testing.T) {
	t.Parallel()

	for _, term := range []Term{
		rangeTerm(t, "lib", ">=1.0.0, <2.0.0", true),
		rangeTerm(t, "lib", ">=3.0.0", false),
	} {
		if got := term.Intersect(term); !termsEquivalent(got, term) {
			t.Errorf("expected a.Intersect(a) == a, got %s for %s", got, term)
		}
	}
}

func TestTermIntersectWithInverseIsEmpty(t *testing.T) {
	t.Parallel()

	term := rangeTerm(t, "lib", ">=1.0.0, <2.0.0", true)
	got := term.Intersect(term.Negate())

	set, ok := setFor(got)
	if !ok {
		t.Fatalf("expected a set-backed result, got %s", got)
	}
	if !set.IsEmpty() {
		t.Errorf("expected empty intersection with inverse, got %s", got)
	}
}

func TestTermSatisfiesMatchesSubsetRelation(t *testing.T) {
	t.Parallel()

	terms := []Term{
		rangeTerm(t, "lib", ">=1.0.0, <2.0.0", true),
		rangeTerm(t, "lib", ">=1.2.0, <1.5.0", true),
		rangeTerm(t, "lib", ">=2.0.0", true),
		rangeTerm(t, "lib", ">=1.0.0", false),
		rangeTerm(t, "lib", ">=1.2.0, <1.5.0", false),
	}

	for _, a := range terms {
		for _, b := range terms {
			wantSubset := a.Relation(b) == RelationSubset
			if got := a.Satisfies(b); got != wantSubset {
				t.Errorf("%s.Satisfies(%s) = %v, relation says %v", a, b, got, wantSubset)
			}
		}
	}
}

func TestTermRelationDisjointSymmetric(t *testing.T) {
	t.Parallel()

	terms := []Term{
		rangeTerm(t, "lib", ">=1.0.0, <2.0.0", true),
		rangeTerm(t, "lib", ">=2.0.0, <3.0.0", true),
		rangeTerm(t, "lib", ">=1.5.0", false),
	}

	for _, a := range terms {
		for _, b := range terms {
			if a.Relation(b) == RelationDisjoint && b.Relation(a) != RelationDisjoint {
				t.Errorf("disjoint not symmetric between %s and %s", a, b)
			}
		}
	}
}

func TestTermRelationTruthTable(t *testing.T) {
	t.Parallel()

	narrow := rangeTerm(t, "lib", ">=1.2.0, <1.5.0", true)
	wide := rangeTerm(t, "lib", ">=1.0.0, <2.0.0", true)
	apart := rangeTerm(t, "lib", ">=3.0.0", true)

	if got := narrow.Relation(wide); got != RelationSubset {
		t.Errorf("narrow ⊆ wide: got %v", got)
	}
	if got := wide.Relation(narrow); got != RelationOverlapping {
		t.Errorf("wide vs narrow: got %v", got)
	}
	if got := narrow.Relation(apart); got != RelationDisjoint {
		t.Errorf("narrow vs apart: got %v", got)
	}

	// positive vs negative: subset iff ranges disjoint, disjoint iff the
	// positive range is contained in the forbidden one.
	if got := narrow.Relation(apart.Negate()); got != RelationSubset {
		t.Errorf("narrow vs not-apart: got %v", got)
	}
	if got := narrow.Relation(wide.Negate()); got != RelationDisjoint {
		t.Errorf("narrow vs not-wide: got %v", got)
	}

	// negative vs positive can never be a subset.
	if got := wide.Negate().Relation(narrow); got == RelationSubset {
		t.Errorf("negative term reported as subset of a positive one")
	}

	// negative vs negative: forbidding a superset is the stronger statement,
	// and two negations can never be disjoint.
	if got := wide.Negate().Relation(narrow.Negate()); got != RelationSubset {
		t.Errorf("not-wide vs not-narrow: got %v", got)
	}
	if got := narrow.Negate().Relation(wide.Negate()); got != RelationOverlapping {
		t.Errorf("not-narrow vs not-wide: got %v", got)
	}

	lower := rangeTerm(t, "lib", "<2.0.0", true)
	upper := rangeTerm(t, "lib", ">=2.0.0", true)
	if got := lower.Negate().Relation(upper.Negate()); got != RelationOverlapping {
		t.Errorf("complementary negations must overlap, got %v", got)
	}
}

func TestTermRelationPanicsOnNameMismatch(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on mismatched package names")
		}
	}()

	a := rangeTerm(t, "lib", ">=1.0.0", true)
	b := rangeTerm(t, "other", ">=1.0.0", true)
	a.Relation(b)
}

func TestTermDifference(t *testing.T) {
	t.Parallel()

	wide := rangeTerm(t, "lib", ">=1.0.0, <3.0.0", true)
	cut := rangeTerm(t, "lib", ">=2.0.0, <3.0.0", true)

	got := wide.Difference(cut)
	want := rangeTerm(t, "lib", ">=1.0.0, <2.0.0", true)
	if !termsEquivalent(got, want) {
		t.Errorf("difference mismatch: got %s, want %s", got, want)
	}
}
