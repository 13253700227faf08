package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type StateRegistry struct {
	mock.Mock
}

func (r *StateRegistry) Register(arg1 context.Context) (string, string, error) {
	args := r.Called(arg1)
	return args.String(0), args.String(1), args.Error(2)
}

func (r *StateRegistry) Validate(arg1 context.Context, arg2, arg3 string) bool {
	args := r.Called(arg1, arg2, arg3)
	return args.Bool(0)
}

func (r *StateRegistry) Sweep(arg1 context.Context) int {
	args := r.Called(arg1)
	return args.Int(0)
}
