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

func newPayment(state models.PaymentState) *models.Payment {
	return &models.Payment{
		ID:           uuid.New(),
		State:        state,
		PriorityType: models.PaymentPriorityTypePriority,
		Value:        1500,
		Key:          "alice@example.com",
		Operation:    &models.Operation{ID: uuid.New()},
	}
}

func TestHandlePendingPaymentEvent_SubmitsToPSP(t *testing.T) {
	// Arrange
	repo := new(MockPaymentRepository)
	psp := new(MockPixPaymentGateway)
	emitter := new(MockPaymentEmitter)
	uc := NewHandlePendingPaymentEvent(repo, psp, emitter)

	payment := newPayment(models.PaymentStatePending)
	repo.On("GetByID", mock.Anything, payment.ID).Return(payment, nil)
	psp.On("CreatePayment", mock.Anything, mock.MatchedBy(func(req interfaces.CreatePaymentRequest) bool {
		return req.ID == payment.ID && req.Value == 1500
	})).Return(&interfaces.CreatedTransactionResponse{ExternalID: "psp-1", EndToEndID: "E1"}, nil)
	repo.On("Update", mock.Anything, payment, mock.Anything).Return(nil, nil)
	emitter.On("WaitingPayment", mock.Anything, payment).Return()

	// Act
	result, err := uc.Execute(context.Background(), payment.ID)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStateWaiting, result.State)
	assert.Equal(t, "psp-1", result.ExternalID)
	assert.Equal(t, "E1", result.EndToEndID)
	repo.AssertExpectations(t)
	psp.AssertExpectations(t)
	emitter.AssertExpectations(t)
}

func TestHandlePendingPaymentEvent_GatewayErrorLeavesPaymentUntouched(t *testing.T) {
	repo := new(MockPaymentRepository)
	psp := new(MockPixPaymentGateway)
	emitter := new(MockPaymentEmitter)
	uc := NewHandlePendingPaymentEvent(repo, psp, emitter)

	payment := newPayment(models.PaymentStatePending)
	gatewayErr := errors.New("psp timeout")
	repo.On("GetByID", mock.Anything, payment.ID).Return(payment, nil)
	psp.On("CreatePayment", mock.Anything, mock.Anything).Return(nil, gatewayErr)

	_, err := uc.Execute(context.Background(), payment.ID)

	assert.ErrorIs(t, err, gatewayErr)
	assert.Equal(t, models.PaymentStatePending, payment.State)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	emitter.AssertNotCalled(t, "WaitingPayment", mock.Anything, mock.Anything)
}

func TestHandlePendingPaymentEvent_States(t *testing.T) {
	tests := []struct {
		name    string
		state   models.PaymentState
		wantErr error
	}{
		{name: "waiting is a no-op", state: models.PaymentStateWaiting},
		{name: "confirmed is rejected", state: models.PaymentStateConfirmed, wantErr: models.ErrInvalidState},
		{name: "failed is rejected", state: models.PaymentStateFailed, wantErr: models.ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockPaymentRepository)
			psp := new(MockPixPaymentGateway)
			emitter := new(MockPaymentEmitter)
			uc := NewHandlePendingPaymentEvent(repo, psp, emitter)

			payment := newPayment(tt.state)
			repo.On("GetByID", mock.Anything, payment.ID).Return(payment, nil)

			result, err := uc.Execute(context.Background(), payment.ID)

			if tt.wantErr != nil {
				var stateErr *models.InvalidStateError
				require.ErrorAs(t, err, &stateErr)
				assert.Equal(t, string(tt.state), stateErr.State)
				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				assert.Same(t, payment, result)
			}
			assert.Equal(t, tt.state, payment.State)
			psp.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything)
			repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
			emitter.AssertNotCalled(t, "WaitingPayment", mock.Anything, mock.Anything)
		})
	}
}

func TestHandlePendingFailedPaymentEvent(t *testing.T) {
	tests := []struct {
		name      string
		state     models.PaymentState
		wantState models.PaymentState
		wantErr   error
		wantWrite bool
	}{
		{name: "pending moves to waiting", state: models.PaymentStatePending, wantState: models.PaymentStateWaiting, wantWrite: true},
		{name: "waiting is a no-op", state: models.PaymentStateWaiting, wantState: models.PaymentStateWaiting},
		{name: "confirmed is rejected", state: models.PaymentStateConfirmed, wantErr: models.ErrInvalidState},
		{name: "failed absorbs the event", state: models.PaymentStateFailed, wantState: models.PaymentStateFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockPaymentRepository)
			emitter := new(MockPaymentEmitter)
			uc := NewHandlePendingFailedPaymentEvent(repo, emitter)

			payment := newPayment(tt.state)
			failed := &models.Failed{Code: "TIMEOUT", Message: "submission timed out"}
			repo.On("GetByID", mock.Anything, payment.ID).Return(payment, nil)
			if tt.wantWrite {
				repo.On("Update", mock.Anything, payment, mock.Anything).Return(nil, nil)
				emitter.On("WaitingPayment", mock.Anything, payment).Return()
			}

			result, err := uc.Execute(context.Background(), payment.ID, failed)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantState, result.State)
			}
			if tt.wantWrite {
				assert.Equal(t, failed, result.Failed)
				repo.AssertExpectations(t)
				emitter.AssertExpectations(t)
			} else {
				repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
				emitter.AssertNotCalled(t, "WaitingPayment", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestHandleCompletePaymentEvent_AcceptsExistingOperation(t *testing.T) {
	repo := new(MockPaymentRepository)
	operations := new(MockOperationService)
	emitter := new(MockPaymentEmitter)
	uc := NewHandleCompletePaymentEvent(repo, operations, emitter)

	payment := newPayment(models.PaymentStateWaiting)
	stored := &models.Operation{ID: payment.Operation.ID, State: models.OperationStatePending}
	repo.On("GetByID", mock.Anything, payment.ID).Return(payment, nil)
	operations.On("GetOperationByID", mock.Anything, payment.Operation.ID).Return(stored, nil)
	operations.On("AcceptOperation", mock.Anything, stored).Return(nil)
	repo.On("Update", mock.Anything, payment, mock.Anything).Return(nil, nil)
	emitter.On("ConfirmedPayment", mock.Anything, payment).Return()

	result, err := uc.Execute(context.Background(), payment.ID, "E777")

	require.NoError(t, err)
	assert.Equal(t, models.PaymentStateConfirmed, result.State)
	assert.Equal(t, "E777", result.EndToEndID)
	operations.AssertExpectations(t)
	emitter.AssertExpectations(t)
}

func TestHandleCompletePaymentEvent_SkipsAcceptWhenOperationIsGone(t *testing.T) {
	repo := new(MockPaymentRepository)
	operations := new(MockOperationService)
	emitter := new(MockPaymentEmitter)
	uc := NewHandleCompletePaymentEvent(repo, operations, emitter)

	payment := newPayment(models.PaymentStateWaiting)
	repo.On("GetByID", mock.Anything, payment.ID).Return(payment, nil)
	operations.On("GetOperationByID", mock.Anything, payment.Operation.ID).Return(nil, nil)
	repo.On("Update", mock.Anything, payment, mock.Anything).Return(nil, nil)
	emitter.On("ConfirmedPayment", mock.Anything, payment).Return()

	result, err := uc.Execute(context.Background(), payment.ID, "")

	require.NoError(t, err)
	assert.Equal(t, models.PaymentStateConfirmed, result.State)
	operations.AssertNotCalled(t, "AcceptOperation", mock.Anything, mock.Anything)
}

func TestHandleCompletePaymentEvent_IsIdempotent(t *testing.T) {
	repo := new(MockPaymentRepository)
	operations := new(MockOperationService)
	emitter := new(MockPaymentEmitter)
	uc := NewHandleCompletePaymentEvent(repo, operations, emitter)

	payment := newPayment(models.PaymentStateConfirmed)
	payment.EndToEndID = "E1"
	repo.On("GetByID", mock.Anything, payment.ID).Return(payment, nil)

	first, err := uc.Execute(context.Background(), payment.ID, "E2")
	require.NoError(t, err)
	second, err := uc.Execute(context.Background(), payment.ID, "E2")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, "E1", second.EndToEndID)
	operations.AssertNotCalled(t, "GetOperationByID", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	emitter.AssertNotCalled(t, "ConfirmedPayment", mock.Anything, mock.Anything)
}

func TestHandleCompletePaymentEvent_RejectsFailedPayment(t *testing.T) {
	repo := new(MockPaymentRepository)
	operations := new(MockOperationService)
	emitter := new(MockPaymentEmitter)
	uc := NewHandleCompletePaymentEvent(repo, operations, emitter)

	payment := newPayment(models.PaymentStateFailed)
	repo.On("GetByID", mock.Anything, payment.ID).Return(payment, nil)

	_, err := uc.Execute(context.Background(), payment.ID, "E1")

	var stateErr *models.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, string(models.PaymentStateFailed), stateErr.State)
	assert.Equal(t, models.EntityPayment, stateErr.Entity)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleRevertPaymentEvent_RevertsOperation(t *testing.T) {
	repo := new(MockPaymentRepository)
	operations := new(MockOperationService)
	emitter := new(MockPaymentEmitter)
	uc := NewHandleRevertPaymentEvent(repo, operations, emitter)

	payment := newPayment(models.PaymentStateWaiting)
	stored := &models.Operation{ID: payment.Operation.ID}
	failed := &models.Failed{Code: "AM04", Message: "insufficient funds"}
	repo.On("GetByID", mock.Anything, payment.ID).Return(payment, nil)
	operations.On("GetOperationByID", mock.Anything, payment.Operation.ID).Return(stored, nil)
	operations.On("RevertOperation", mock.Anything, stored).Return(nil)
	repo.On("Update", mock.Anything, payment, mock.Anything).Return(nil, nil)
	emitter.On("FailedPayment", mock.Anything, payment).Return()

	result, err := uc.Execute(context.Background(), payment.ID, "fraud", failed)

	require.NoError(t, err)
	assert.Equal(t, models.PaymentStateFailed, result.State)
	assert.Equal(t, "fraud", result.ChargebackReason)
	assert.Equal(t, failed, result.Failed)
	assert.NotNil(t, result.Operation)
	operations.AssertExpectations(t)
	emitter.AssertExpectations(t)
}

func TestHandleRevertPaymentEvent_ClearsMissingOperation(t *testing.T) {
	repo := new(MockPaymentRepository)
	operations := new(MockOperationService)
	emitter := new(MockPaymentEmitter)
	uc := NewHandleRevertPaymentEvent(repo, operations, emitter)

	payment := newPayment(models.PaymentStatePending)
	repo.On("GetByID", mock.Anything, payment.ID).Return(payment, nil)
	operations.On("GetOperationByID", mock.Anything, payment.Operation.ID).Return(nil, nil)
	repo.On("Update", mock.Anything, payment, mock.Anything).Return(nil, nil)
	emitter.On("FailedPayment", mock.Anything, payment).Return()

	result, err := uc.Execute(context.Background(), payment.ID, "", nil)

	require.NoError(t, err)
	assert.Nil(t, result.Operation)
	operations.AssertNotCalled(t, "RevertOperation", mock.Anything, mock.Anything)
}

func TestHandleRevertPaymentEvent_States(t *testing.T) {
	tests := []struct {
		name    string
		state   models.PaymentState
		wantErr error
	}{
		{name: "failed is a no-op", state: models.PaymentStateFailed},
		{name: "confirmed is rejected", state: models.PaymentStateConfirmed, wantErr: models.ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockPaymentRepository)
			operations := new(MockOperationService)
			emitter := new(MockPaymentEmitter)
			uc := NewHandleRevertPaymentEvent(repo, operations, emitter)

			payment := newPayment(tt.state)
			repo.On("GetByID", mock.Anything, payment.ID).Return(payment, nil)

			result, err := uc.Execute(context.Background(), payment.ID, "fraud", &models.Failed{Code: "AM04"})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				assert.Same(t, payment, result)
				assert.Empty(t, result.ChargebackReason)
			}
			assert.Equal(t, tt.state, payment.State)
			operations.AssertNotCalled(t, "GetOperationByID", mock.Anything, mock.Anything)
			operations.AssertNotCalled(t, "RevertOperation", mock.Anything, mock.Anything)
			repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
			emitter.AssertNotCalled(t, "FailedPayment", mock.Anything, mock.Anything)
		})
	}
}

func TestHandleRevertPaymentEvent_LosesToConcurrentRevert(t *testing.T) {
	repo := new(MockPaymentRepository)
	operations := new(MockOperationService)
	emitter := new(MockPaymentEmitter)
	uc := NewHandleRevertPaymentEvent(repo, operations, emitter)

	payment := newPayment(models.PaymentStateWaiting)
	payment.Operation = nil
	failed := newPayment(models.PaymentStateFailed)
	failed.ID = payment.ID
	stale := models.NewStaleStateError(models.EntityPayment, payment.ID, "WAITING", "FAILED")

	repo.On("GetByID", mock.Anything, payment.ID).Return(payment, nil).Once()
	repo.On("Update", mock.Anything, payment, models.PaymentStateWaiting).Return(nil, stale).Once()
	repo.On("GetByID", mock.Anything, payment.ID).Return(failed, nil).Once()

	result, err := uc.Execute(context.Background(), payment.ID, "", nil)

	require.NoError(t, err)
	assert.Same(t, failed, result)
	emitter.AssertNotCalled(t, "FailedPayment", mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestHandleCompletePaymentEvent_StaleWriteAgainstUnexpectedStateIsReturned(t *testing.T) {
	repo := new(MockPaymentRepository)
	operations := new(MockOperationService)
	emitter := new(MockPaymentEmitter)
	uc := NewHandleCompletePaymentEvent(repo, operations, emitter)

	payment := newPayment(models.PaymentStateWaiting)
	payment.Operation = nil
	stale := models.NewStaleStateError(models.EntityPayment, payment.ID, "WAITING", "FAILED")

	repo.On("GetByID", mock.Anything, payment.ID).Return(payment, nil).Once()
	repo.On("Update", mock.Anything, payment, models.PaymentStateWaiting).Return(nil, stale).Once()

	_, err := uc.Execute(context.Background(), payment.ID, "E1")

	assert.ErrorIs(t, err, models.ErrStaleState)
	emitter.AssertNotCalled(t, "ConfirmedPayment", mock.Anything, mock.Anything)
}

func TestPaymentUseCases_InputErrors(t *testing.T) {
	repo := new(MockPaymentRepository)
	uc := NewHandleRevertPaymentEvent(repo, new(MockOperationService), new(MockPaymentEmitter))

	t.Run("missing id", func(t *testing.T) {
		_, err := uc.Execute(context.Background(), uuid.Nil, "", nil)
		assert.ErrorIs(t, err, models.ErrMissingData)
		repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("unknown payment", func(t *testing.T) {
		id := uuid.New()
		repo.On("GetByID", mock.Anything, id).Return(nil, nil)

		_, err := uc.Execute(context.Background(), id, "", nil)

		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.False(t, errors.Is(err, models.ErrInvalidState))
	})
}
