package pubgrub

import "testing"

func TestPartialSolutionPreviousDecisionLevel(t *testing.T) {
	root := MakeName("root")
	ps := newPartialSolution(root)
	rootVersion := SimpleVersion("1.0.0")
	ps.seedRoot(root, rootVersion)

	a := MakeName("a")
	aVersion := SimpleVersion("1.0.0")
	ps.addDecision(a, aVersion)

	b := MakeName("b")
	bVersion := SimpleVersion("1.0.0")
	assignB := ps.addDecision(b, bVersion)

	inc := &Incompatibility{
		Terms: []Term{
			NewTerm(a, EqualsCondition{Version: aVersion}),
			NewTerm(b, EqualsCondition{Version: bVersion}),
		},
		Cause: Cause{Kind: CauseConflict},
	}

	satisfier := ps.satisfier(inc)
	if satisfier == nil {
		t.Fatalf("expected satisfier, got nil")
	}
	if satisfier != assignB {
		t.Fatalf("expected satisfier to be assignment for %s, got %s", b.Value(), satisfier.name.Value())
	}

	prev := ps.previousDecisionLevel(inc, satisfier)
	if prev != 1 {
		t.Fatalf("expected previous decision level 1, got %d", prev)
	}
}

func TestPartialSolutionBacktrackIdempotent(t *testing.T) {
	root := MakeName("root")
	ps := newPartialSolution(root)
	ps.seedRoot(root, SimpleVersion("1"))

	a := MakeName("a")
	b := MakeName("b")
	c := MakeName("c")

	ps.addDecision(a, SimpleVersion("1.0.0"))
	ps.addDecision(b, SimpleVersion("2.0.0"))
	ps.addDecision(c, SimpleVersion("3.0.0"))

	ps.backtrack(1)
	countAfterFirst := len(ps.assignments)
	lvlAfterFirst := ps.decisionLvl

	ps.backtrack(1)
	if len(ps.assignments) != countAfterFirst {
		t.Fatalf("second backtrack changed assignment count: %d vs %d", len(ps.assignments), countAfterFirst)
	}
	if ps.decisionLvl != lvlAfterFirst {
		t.Fatalf("second backtrack changed decision level: %d vs %d", ps.decisionLvl, lvlAfterFirst)
	}

	if !ps.hasDecision(a) {
		t.Error("expected decision for a to survive backtrack to level 1")
	}
	if ps.hasDecision(b) || ps.hasDecision(c) {
		t.Error("expected decisions for b and c to be discarded")
	}
}

func TestPartialSolutionBacktrackRoundTrip(t *testing.T) {
	root := MakeName("root")
	build := func(stopLevel int) *partialSolution {
		ps := newPartialSolution(root)
		ps.seedRoot(root, SimpleVersion("1"))
		if stopLevel >= 1 {
			ps.addDecision(MakeName("a"), SimpleVersion("1.0.0"))
		}
		if stopLevel >= 2 {
			ps.addDecision(MakeName("b"), SimpleVersion("2.0.0"))
		}
		return ps
	}

	full := build(2)
	full.backtrack(1)

	want := build(1)

	if len(full.assignments) != len(want.assignments) {
		t.Fatalf("expected %d assignments after backtrack, got %d", len(want.assignments), len(full.assignments))
	}
	for _, name := range []Name{MakeName("a"), MakeName("b")} {
		gotSet := full.allowedSet(name)
		wantSet := want.allowedSet(name)
		if !setsEqual(gotSet, wantSet) {
			t.Errorf("allowedSet(%s) mismatch after backtrack: %s vs %s", name.Value(), gotSet, wantSet)
		}
	}
}

func TestPartialSolutionDerivationNarrowsAllowedSet(t *testing.T) {
	root := MakeName("root")
	ps := newPartialSolution(root)
	ps.seedRoot(root, SimpleVersion("1"))

	lib := MakeName("lib")
	wide, err := ParseVersionRange(">=1.0.0, <3.0.0")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	narrow, err := ParseVersionRange(">=2.0.0, <3.0.0")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	cause := NewIncompatibilityNoVersions(NewTerm(lib, NewVersionSetCondition(wide)))
	if _, _, err := ps.addDerivation(NewTerm(lib, NewVersionSetCondition(wide)), cause); err != nil {
		t.Fatalf("first derivation: %v", err)
	}
	if _, _, err := ps.addDerivation(NewTerm(lib, NewVersionSetCondition(narrow)), cause); err != nil {
		t.Fatalf("second derivation: %v", err)
	}

	got := ps.allowedSet(lib)
	if !setsEqual(got, narrow) {
		t.Fatalf("expected allowed set to narrow to %s, got %s", narrow, got)
	}

	v250, err := ParseSemanticVersion("2.5.0")
	if err != nil {
		t.Fatalf("parse version: %v", err)
	}
	if !got.Contains(v250) {
		t.Error("expected narrowed set to contain 2.5.0")
	}
	v150, err := ParseSemanticVersion("1.5.0")
	if err != nil {
		t.Fatalf("parse version: %v", err)
	}
	if got.Contains(v150) {
		t.Error("expected narrowed set to exclude 1.5.0")
	}
}

func TestPartialSolutionEmptyDerivationErrors(t *testing.T) {
	root := MakeName("root")
	ps := newPartialSolution(root)
	ps.seedRoot(root, SimpleVersion("1"))

	lib := MakeName("lib")
	low, err := ParseVersionRange("<1.0.0")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	high, err := ParseVersionRange(">=2.0.0")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	cause := NewIncompatibilityNoVersions(NewTerm(lib, NewVersionSetCondition(low)))
	if _, _, err := ps.addDerivation(NewTerm(lib, NewVersionSetCondition(low)), cause); err != nil {
		t.Fatalf("first derivation: %v", err)
	}
	_, _, err = ps.addDerivation(NewTerm(lib, NewVersionSetCondition(high)), cause)
	if err == nil {
		t.Fatal("expected contradictory derivation to error")
	}
}
