package customer

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (_m *MockRepository) Create(ctx context.Context, c *Customer) error {
	ret := _m.Called(ctx, c)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *Customer) error); ok {
		r0 = rf(ctx, c)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

func (_m *MockRepository) Get(ctx context.Context, tenantID string, id uuid.UUID) (*Customer, error) {
	ret := _m.Called(ctx, tenantID, id)

	var r0 *Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Customer)
	}

	return r0, ret.Error(1)
}

func (_m *MockRepository) List(ctx context.Context, tenantID string) ([]*Customer, error) {
	ret := _m.Called(ctx, tenantID)

	var r0 []*Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*Customer)
	}

	return r0, ret.Error(1)
}

func (_m *MockRepository) Update(ctx context.Context, c *Customer) error {
	ret := _m.Called(ctx, c)
	return ret.Error(0)
}

func (_m *MockRepository) Delete(ctx context.Context, tenantID string, id uuid.UUID) error {
	ret := _m.Called(ctx, tenantID, id)
	return ret.Error(0)
}
