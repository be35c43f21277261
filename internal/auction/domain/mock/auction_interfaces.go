package mock

import (
	context "context"
	reflect "reflect"

	domain "github.com/cristianortiz/auctionhouse/internal/auction/domain"
	user "github.com/cristianortiz/auctionhouse/internal/user/domain"
	uuid "github.com/google/uuid"
	gomock "go.uber.org/mock/gomock"
)

// MockUserDirectory is a mock of UserDirectory interface.
type MockUserDirectory struct {
	ctrl     *gomock.Controller
	recorder *MockUserDirectoryMockRecorder
	isgomock struct{}
}

// MockUserDirectoryMockRecorder is the mock recorder for MockUserDirectory.
type MockUserDirectoryMockRecorder struct {
	mock *MockUserDirectory
}

// NewMockUserDirectory creates a new mock instance.
func NewMockUserDirectory(ctrl *gomock.Controller) *MockUserDirectory {
	mock := &MockUserDirectory{ctrl: ctrl}
	mock.recorder = &MockUserDirectoryMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockUserDirectory) EXPECT() *MockUserDirectoryMockRecorder {
	return m.recorder
}

// GetByID mocks base method.
func (m *MockUserDirectory) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetByID", ctx, id)
	ret0, _ := ret[0].(*user.User)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetByID indicates an expected call of GetByID.
func (mr *MockUserDirectoryMockRecorder) GetByID(ctx, id any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetByID", reflect.TypeOf((*MockUserDirectory)(nil).GetByID), ctx, id)
}

// MockEventPublisher is a mock of EventPublisher interface.
type MockEventPublisher struct {
	ctrl     *gomock.Controller
	recorder *MockEventPublisherMockRecorder
	isgomock struct{}
}

// MockEventPublisherMockRecorder is the mock recorder for MockEventPublisher.
type MockEventPublisherMockRecorder struct {
	mock *MockEventPublisher
}

// NewMockEventPublisher creates a new mock instance.
func NewMockEventPublisher(ctrl *gomock.Controller) *MockEventPublisher {
	mock := &MockEventPublisher{ctrl: ctrl}
	mock.recorder = &MockEventPublisherMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockEventPublisher) EXPECT() *MockEventPublisherMockRecorder {
	return m.recorder
}

// PublishBidAccepted mocks base method.
func (m *MockEventPublisher) PublishBidAccepted(event domain.BidAccepted) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "PublishBidAccepted", event)
}

// PublishBidAccepted indicates an expected call of PublishBidAccepted.
func (mr *MockEventPublisherMockRecorder) PublishBidAccepted(event any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "PublishBidAccepted", reflect.TypeOf((*MockEventPublisher)(nil).PublishBidAccepted), event)
}
