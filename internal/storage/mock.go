package storage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/JamesPrial/pokeflow/pkg/pokemon"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) PutDetails(ctx context.Context, details []pokemon.Detail) error {
	args := m.Called(ctx, details)
	return args.Error(0)
}

func (m *MockBackend) PutDetail(ctx context.Context, key string, detail pokemon.Detail) error {
	args := m.Called(ctx, key, detail)
	return args.Error(0)
}

func (m *MockBackend) GetDetail(ctx context.Context, name string) (*pokemon.Detail, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pokemon.Detail), args.Error(1)
}

func (m *MockBackend) GetStatistics(ctx context.Context) (map[string]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *MockBackend) Close() error {
	args := m.Called()
	return args.Error(0)
}
