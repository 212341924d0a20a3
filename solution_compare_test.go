package pubgrub

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// solutionKeys renders a Solution as a sorted "<name> <version>" slice so
// go-cmp can diff it without tripping over unique.Handle's unexported
// interning fields, and so the comparison is order-independent the way a
// resolved package set inherently is.
func solutionKeys(sol Solution) []string {
	keys := make([]string, 0, len(sol))
	for _, nv := range sol {
		keys = append(keys, nv.String())
	}
	sort.Strings(keys)
	return keys
}

func assertSolutionEqual(t *testing.T, want, got Solution) {
	t.Helper()
	if diff := cmp.Diff(solutionKeys(want), solutionKeys(got)); diff != "" {
		t.Fatalf("solution mismatch (-want +got):\n%s", diff)
	}
}

func TestSolver_SharedTransitive_PicksHighestCompatible(t *testing.T) {
	source := &InMemorySource{}
	source.AddPackage(MakeName("a"), SimpleVersion("1.0.0"), []Term{
		NewTerm(MakeName("c"), NewVersionSetCondition(mustRange(t, ">=1.0.0, <2.0.0"))),
	})
	source.AddPackage(MakeName("b"), SimpleVersion("1.0.0"), []Term{
		NewTerm(MakeName("c"), NewVersionSetCondition(mustRange(t, ">=1.1.0, <2.0.0"))),
	})
	source.AddPackage(MakeName("c"), SimpleVersion("1.0.0"), nil)
	source.AddPackage(MakeName("c"), SimpleVersion("1.1.0"), nil)
	source.AddPackage(MakeName("c"), SimpleVersion("1.2.0"), nil)

	root := NewRootSource()
	root.AddPackage(MakeName("a"), EqualsCondition{Version: SimpleVersion("1.0.0")})
	root.AddPackage(MakeName("b"), EqualsCondition{Version: SimpleVersion("1.0.0")})

	solver := NewSolver(root, source)
	solution, err := solver.Solve(root.Term())
	require.NoError(t, err)

	want := Solution{
		{Name: MakeName("a"), Version: SimpleVersion("1.0.0")},
		{Name: MakeName("b"), Version: SimpleVersion("1.0.0")},
		{Name: MakeName("c"), Version: SimpleVersion("1.2.0")},
	}
	assertSolutionEqual(t, want, solution.NonRoot())
	assert.Equal(t, 1, solver.AttemptedSolutions())
}

func mustRange(t *testing.T, expr string) VersionSet {
	t.Helper()
	set, err := ParseVersionRange(expr)
	require.NoError(t, err)
	return set
}
