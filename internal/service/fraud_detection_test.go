package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/interfaces"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/models"
)

type fraudFixture struct {
	repo    *MockPixFraudDetectionRepository
	psp     *MockFraudDetectionGateway
	issues  *MockIssueGateway
	emitter *MockFraudDetectionEmitter
}

func newFraudFixture() *fraudFixture {
	return &fraudFixture{
		repo:    new(MockPixFraudDetectionRepository),
		psp:     new(MockFraudDetectionGateway),
		issues:  new(MockIssueGateway),
		emitter: new(MockFraudDetectionEmitter),
	}
}

func newFraudDetection(state models.PixFraudDetectionState) *models.PixFraudDetection {
	return &models.PixFraudDetection{
		ID:        uuid.New(),
		IssueID:   31,
		Document:  "12345678900",
		Key:       "+5511999999999",
		FraudType: models.PixFraudDetectionTypeFraudsterAccount,
		State:     state,
	}
}

func TestHandleRegisterPendingPixFraudDetectionEvent_OrdersExternalCallsBeforePersist(t *testing.T) {
	f := newFraudFixture()
	uc := NewHandleRegisterPendingPixFraudDetectionEvent(f.repo, f.psp, f.issues, f.emitter)

	fd := newFraudDetection(models.PixFraudDetectionStateRegisteredPending)
	var order []string

	f.repo.On("GetByID", mock.Anything, fd.ID).Return(fd, nil)
	f.psp.On("CreateFraudDetection", mock.Anything, interfaces.CreateFraudDetectionRequest{
		ID:        fd.ID,
		Document:  fd.Document,
		Key:       fd.Key,
		FraudType: fd.FraudType,
	}).Run(func(mock.Arguments) { order = append(order, "psp") }).
		Return(&interfaces.FraudDetectionResponse{FraudDetectionID: "fd-ext-1", Status: models.PixFraudDetectionStatusRegistered}, nil)
	f.issues.On("UpdatePixFraudDetectionIssue", mock.Anything, interfaces.UpdatePixFraudDetectionIssueRequest{
		IssueID:    31,
		ExternalID: "fd-ext-1",
		Status:     models.PixFraudDetectionStatusRegistered,
	}).Run(func(mock.Arguments) { order = append(order, "issue") }).Return(nil)
	f.repo.On("Update", mock.Anything, fd, mock.Anything).Run(func(mock.Arguments) { order = append(order, "persist") }).Return(nil, nil)
	f.emitter.On("RegisterConfirmedPixFraudDetection", mock.Anything, fd).Run(func(mock.Arguments) { order = append(order, "emit") }).Return()

	result, err := uc.Execute(context.Background(), fd.ID)

	require.NoError(t, err)
	assert.Equal(t, []string{"psp", "issue", "persist", "emit"}, order)
	assert.Equal(t, models.PixFraudDetectionStateRegisteredConfirmed, result.State)
	assert.Equal(t, "fd-ext-1", result.ExternalID)
}

func TestHandleRegisterPendingPixFraudDetectionEvent_IssueFailureKeepsRecordPending(t *testing.T) {
	f := newFraudFixture()
	uc := NewHandleRegisterPendingPixFraudDetectionEvent(f.repo, f.psp, f.issues, f.emitter)

	fd := newFraudDetection(models.PixFraudDetectionStateRegisteredPending)
	issueErr := errors.New("issue tracker unavailable")

	f.repo.On("GetByID", mock.Anything, fd.ID).Return(fd, nil)
	f.psp.On("CreateFraudDetection", mock.Anything, mock.Anything).Return(&interfaces.FraudDetectionResponse{FraudDetectionID: "fd-ext-1"}, nil)
	f.issues.On("UpdatePixFraudDetectionIssue", mock.Anything, mock.Anything).Return(issueErr)

	_, err := uc.Execute(context.Background(), fd.ID)

	assert.ErrorIs(t, err, issueErr)
	assert.Equal(t, models.PixFraudDetectionStateRegisteredPending, fd.State)
	assert.Empty(t, fd.ExternalID)
	f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	f.emitter.AssertNotCalled(t, "RegisterConfirmedPixFraudDetection", mock.Anything, mock.Anything)
}

func TestHandleRegisterPendingPixFraudDetectionEvent_RetryFromFailedReusesExternalID(t *testing.T) {
	f := newFraudFixture()
	uc := NewHandleRegisterPendingPixFraudDetectionEvent(f.repo, f.psp, f.issues, f.emitter)

	fd := newFraudDetection(models.PixFraudDetectionStateFailed)
	fd.ExternalID = "fd-ext-7"
	fd.Failed = &models.Failed{Code: "TIMEOUT"}

	f.repo.On("GetByID", mock.Anything, fd.ID).Return(fd, nil)
	f.issues.On("UpdatePixFraudDetectionIssue", mock.Anything, mock.MatchedBy(func(req interfaces.UpdatePixFraudDetectionIssueRequest) bool {
		return req.ExternalID == "fd-ext-7"
	})).Return(nil)
	f.repo.On("Update", mock.Anything, fd, mock.Anything).Return(nil, nil)
	f.emitter.On("RegisterConfirmedPixFraudDetection", mock.Anything, fd).Return()

	result, err := uc.Execute(context.Background(), fd.ID)

	require.NoError(t, err)
	assert.Equal(t, models.PixFraudDetectionStateRegisteredConfirmed, result.State)
	assert.Nil(t, result.Failed)
	f.psp.AssertNotCalled(t, "CreateFraudDetection", mock.Anything, mock.Anything)
}

func TestHandleRegisterPendingPixFraudDetectionEvent_States(t *testing.T) {
	tests := []struct {
		state   models.PixFraudDetectionState
		wantErr error
	}{
		{state: models.PixFraudDetectionStateRegisteredConfirmed},
		{state: models.PixFraudDetectionStateCanceledPending, wantErr: models.ErrInvalidState},
		{state: models.PixFraudDetectionStateCanceledConfirmed, wantErr: models.ErrInvalidState},
		{state: models.PixFraudDetectionStateReceived, wantErr: models.ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			f := newFraudFixture()
			uc := NewHandleRegisterPendingPixFraudDetectionEvent(f.repo, f.psp, f.issues, f.emitter)

			fd := newFraudDetection(tt.state)
			f.repo.On("GetByID", mock.Anything, fd.ID).Return(fd, nil)

			result, err := uc.Execute(context.Background(), fd.ID)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Same(t, fd, result)
			}
			f.psp.AssertNotCalled(t, "CreateFraudDetection", mock.Anything, mock.Anything)
			f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestHandleCancelPendingPixFraudDetectionEvent(t *testing.T) {
	f := newFraudFixture()
	uc := NewHandleCancelPendingPixFraudDetectionEvent(f.repo, f.psp, f.issues, f.emitter)

	fd := newFraudDetection(models.PixFraudDetectionStateCanceledPending)
	fd.ExternalID = "fd-ext-2"

	f.repo.On("GetByID", mock.Anything, fd.ID).Return(fd, nil)
	f.psp.On("CancelFraudDetection", mock.Anything, interfaces.CancelFraudDetectionRequest{FraudDetectionID: "fd-ext-2"}).
		Return(&interfaces.FraudDetectionResponse{FraudDetectionID: "fd-ext-2"}, nil).Once()
	f.issues.On("UpdatePixFraudDetectionIssue", mock.Anything, interfaces.UpdatePixFraudDetectionIssueRequest{
		IssueID:    31,
		ExternalID: "fd-ext-2",
		Status:     models.PixFraudDetectionStatusCanceledRegistered,
	}).Return(nil).Once()
	f.repo.On("Update", mock.Anything, fd, mock.Anything).Return(nil, nil).Once()
	f.emitter.On("CancelConfirmedPixFraudDetection", mock.Anything, fd).Return().Once()

	result, err := uc.Execute(context.Background(), fd.ID)
	require.NoError(t, err)
	_, err = uc.Execute(context.Background(), fd.ID)
	require.NoError(t, err)

	assert.Equal(t, models.PixFraudDetectionStateCanceledConfirmed, result.State)
	assert.Equal(t, models.PixFraudDetectionStatusCanceledRegistered, result.Status)
	f.emitter.AssertNumberOfCalls(t, "CancelConfirmedPixFraudDetection", 1)
}

func TestHandleFailedPixFraudDetectionEvent(t *testing.T) {
	f := newFraudFixture()
	uc := NewHandleFailedPixFraudDetectionEvent(f.repo, f.emitter)

	fd := newFraudDetection(models.PixFraudDetectionStateRegisteredPending)
	failed := &models.Failed{Code: "PSP_DOWN", Message: "gateway unavailable"}

	f.repo.On("GetByID", mock.Anything, fd.ID).Return(fd, nil)
	f.repo.On("Update", mock.Anything, fd, mock.Anything).Return(nil, nil)
	f.emitter.On("FailedPixFraudDetection", mock.Anything, fd).Return()

	result, err := uc.Execute(context.Background(), fd.ID, failed)

	require.NoError(t, err)
	assert.Equal(t, models.PixFraudDetectionStateFailed, result.State)
	assert.Equal(t, failed, result.Failed)

	_, err = uc.Execute(context.Background(), uuid.Nil, failed)
	assert.ErrorIs(t, err, models.ErrMissingData)
}
