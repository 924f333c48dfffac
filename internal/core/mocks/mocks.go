package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/corkboard/realtime-backend/internal/core/domain"
	"github.com/corkboard/realtime-backend/internal/core/ports"
)

// MockMembershipResolver is a mock implementation of ports.MembershipResolver
type MockMembershipResolver struct {
	mock.Mock
}

func NewMockMembershipResolver() *MockMembershipResolver {
	return &MockMembershipResolver{}
}

func (m *MockMembershipResolver) IsMember(ctx context.Context, userID uuid.UUID, projectID string) (bool, error) {
	args := m.Called(ctx, userID, projectID)
	return args.Bool(0), args.Error(1)
}

// MockEventBus is a mock implementation of ports.EventBus
type MockEventBus struct {
	mock.Mock
}

func NewMockEventBus() *MockEventBus {
	return &MockEventBus{}
}

func (m *MockEventBus) Emit(channel string, event domain.Event) {
	m.Called(channel, event)
}

func (m *MockEventBus) Subscribe(channel string, fn func(domain.Event)) func() {
	args := m.Called(channel, fn)
	return args.Get(0).(func())
}

func (m *MockEventBus) CanUserConnect(userID string) bool {
	args := m.Called(userID)
	return args.Bool(0)
}

func (m *MockEventBus) CanProjectAcceptConnection(projectID string) bool {
	args := m.Called(projectID)
	return args.Bool(0)
}

func (m *MockEventBus) TrackConnection(userID, projectID string) func() {
	args := m.Called(userID, projectID)
	return args.Get(0).(func())
}

func (m *MockEventBus) ListenerCount(channel string) int {
	args := m.Called(channel)
	return args.Int(0)
}

func (m *MockEventBus) Stats() ports.BusStats {
	args := m.Called()
	return args.Get(0).(ports.BusStats)
}
