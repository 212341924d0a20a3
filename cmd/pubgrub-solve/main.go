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

// Command pubgrub-solve is a thin demonstration harness for the pubgrub
// solver library: it builds an in-memory package universe from repeated
// --package flags, a root requirement set from repeated --require flags,
// runs the solver, and prints the resolved package set or the failure
// writer's rendered explanation. It does not read or write a lock file,
// download an artifact, or touch a real package registry.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/depwise/pubgrub"
)

// packageFlag values look like "name@version:dep1@range1,dep2@range2".
// The dependency list after ':' may be omitted for a leaf package.
func main() {
	var packages []string
	var requires []string
	var maxSteps int
	var verbose bool

	pflag.StringArrayVarP(&packages, "package", "p", nil,
		`a candidate version, format "name@version:dep@range,dep@range,..." (repeatable)`)
	pflag.StringArrayVarP(&requires, "require", "r", nil,
		`a root requirement, format "name@range" (repeatable)`)
	pflag.IntVar(&maxSteps, "max-steps", 0, "solver iteration limit (0 = keep the library default of 100000)")
	pflag.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging to stderr")
	pflag.Parse()

	source := &pubgrub.InMemorySource{}
	for _, spec := range packages {
		if err := addPackage(source, spec); err != nil {
			fmt.Fprintf(os.Stderr, "pubgrub-solve: %v\n", err)
			os.Exit(2)
		}
	}

	root := pubgrub.NewRootSource()
	for _, spec := range requires {
		name, rng, err := splitNameRange(spec)
		if err != nil {
			fmt.Fprintf(os.Stderr, "pubgrub-solve: %v\n", err)
			os.Exit(2)
		}
		root.AddPackage(pubgrub.MakeName(name), pubgrub.NewVersionSetCondition(rng))
	}

	opts := []pubgrub.SolverOption{
		pubgrub.WithIncompatibilityTracking(true),
	}
	if maxSteps > 0 {
		opts = append(opts, pubgrub.WithMaxSteps(maxSteps))
	}
	if verbose {
		logger := logrus.New()
		logger.SetLevel(logrus.DebugLevel)
		opts = append(opts, pubgrub.WithLogger(logger))
	}

	solver := pubgrub.NewSolverWithOptions([]pubgrub.Source{root, source}, opts...)
	solution, err := solver.Solve(root.Term())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	for nv := range solution.NonRoot().All() {
		fmt.Println(nv.String())
	}
}

func addPackage(source *pubgrub.InMemorySource, spec string) error {
	head, depsPart, hasDeps := strings.Cut(spec, ":")
	name, version, err := splitNameVersion(head)
	if err != nil {
		return err
	}

	var terms []pubgrub.Term
	if hasDeps && depsPart != "" {
		for _, depSpec := range strings.Split(depsPart, ",") {
			depName, rng, err := splitNameRange(depSpec)
			if err != nil {
				return err
			}
			terms = append(terms, pubgrub.NewTerm(pubgrub.MakeName(depName), pubgrub.NewVersionSetCondition(rng)))
		}
	}

	source.AddPackage(pubgrub.MakeName(name), pubgrub.SimpleVersion(version), terms)
	return nil
}

func splitNameVersion(s string) (name, version string, err error) {
	name, version, ok := strings.Cut(s, "@")
	if !ok || name == "" || version == "" {
		return "", "", fmt.Errorf("expected name@version, got %q", s)
	}
	return name, version, nil
}

func splitNameRange(s string) (name string, rng pubgrub.VersionSet, err error) {
	name, rangeExpr, ok := strings.Cut(s, "@")
	if !ok || name == "" {
		return "", nil, fmt.Errorf("expected name@range, got %q", s)
	}
	set, err := pubgrub.ParseVersionRange(rangeExpr)
	if err != nil {
		return "", nil, fmt.Errorf("parsing range for %s: %w", name, err)
	}
	return name, set, nil
}
