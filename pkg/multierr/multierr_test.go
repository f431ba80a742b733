package multierr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	errA = errors.New("first failure")
	errB = errors.New("second failure")
)

func Test_AppendAndErrOrNil(t *testing.T) {
	cases := []struct {
		name  string
		errs  []error
		check func(assert *assert.Assertions, got error)
	}{
		{
			name: "no errors yields nil",
			errs: nil,
			check: func(assert *assert.Assertions, got error) {
				assert.Nil(got)
			},
		},
		{
			name: "nil appends are dropped",
			errs: []error{nil, nil},
			check: func(assert *assert.Assertions, got error) {
				assert.Nil(got)
			},
		},
		{
			name: "single error unwraps",
			errs: []error{errA},
			check: func(assert *assert.Assertions, got error) {
				assert.Same(errA, got)
			},
		},
		{
			name: "multiple errors aggregate",
			errs: []error{errA, nil, errB},
			check: func(assert *assert.Assertions, got error) {
				assert.Contains(got.Error(), "2 errors occurred")
				assert.Contains(got.Error(), "first failure")
				assert.Contains(got.Error(), "second failure")
			},
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			var e Error
			for _, err := range tt.errs {
				e.Append(err)
			}
			tt.check(assert, e.ErrOrNil())
		})
	}
}

func Test_Is(t *testing.T) {
	assert := assert.New(t)
	var e Error
	e.Append(fmt.Errorf("wrapped: %w", errA))
	e.Append(errB)
	assert.True(errors.Is(e.ErrOrNil(), errA))
	assert.True(errors.Is(e.ErrOrNil(), errB))
}
