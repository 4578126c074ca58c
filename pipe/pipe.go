// Package pipe runs a series of dependent steps, stopping at the first failure
package pipe

import (
	"context"

	"github.com/pkg/errors"
)

// Step is one named unit of work. Name describes the step in failure messages, e.g. "stage rules.json"
type Step struct {
	Name string
	Do   func() error
}

// Steps run in order, each one able to rely on the results of the ones before it
type Steps []Step

// Then returns s with another step appended
func (s Steps) Then(name string, do func() error) Steps {
	return append(s, Step{Name: name, Do: do})
}

// Run runs each step in order. The first failure stops the run and is wrapped with the step's name
func (s Steps) Run() error {
	return s.RunContext(context.Background())
}

// RunContext runs like Run, but does not start another step once ctx is done
func (s Steps) RunContext(ctx context.Context) error {
	for _, step := range s {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step.Do(); err != nil {
			if step.Name == "" {
				return err
			}
			return errors.Wrapf(err, "Failed to %s", step.Name)
		}
	}
	return nil
}
