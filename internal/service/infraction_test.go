package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/models"
)

type infractionFixture struct {
	repo        *MockPixInfractionRepository
	payments    *MockPaymentRepository
	devolutions *MockDevolutionRepository[*models.PixDevolution]
	emitter     *MockInfractionEmitter
	create      *CreatePixInfraction
}

func newInfractionFixture() *infractionFixture {
	f := &infractionFixture{
		repo:        new(MockPixInfractionRepository),
		payments:    new(MockPaymentRepository),
		devolutions: new(MockDevolutionRepository[*models.PixDevolution]),
		emitter:     new(MockInfractionEmitter),
	}
	f.create = NewCreatePixInfraction(f.repo, NewTransactionResolver(f.payments, f.devolutions), f.emitter)
	return f
}

func incomingInfraction(txType models.TransactionType, status models.PixInfractionStatus) *models.PixInfraction {
	return &models.PixInfraction{
		IssueID:        77,
		InfractionType: models.PixInfractionTypeFraud,
		Status:         status,
		Description:    "suspicious transfer",
		Transaction:    models.Transaction{Type: txType, ID: uuid.New()},
	}
}

func TestCreatePixInfraction_ResolvesTransactionByType(t *testing.T) {
	t.Run("payment", func(t *testing.T) {
		f := newInfractionFixture()
		infraction := incomingInfraction(models.TransactionTypePayment, models.PixInfractionStatusNew)

		f.repo.On("GetByIssueID", mock.Anything, int64(77)).Return(nil, nil)
		f.payments.On("GetByID", mock.Anything, infraction.Transaction.ID).Return(&models.Payment{ID: infraction.Transaction.ID, EndToEndID: "E-PAY"}, nil)
		f.repo.On("Create", mock.Anything, infraction).Return(nil, nil)
		f.emitter.On("NewInfraction", mock.Anything, infraction).Return()

		created, err := f.create.Execute(context.Background(), infraction)

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, created.ID)
		assert.Equal(t, models.PixInfractionStateNewConfirmed, created.State)
		assert.Equal(t, "E-PAY", created.EndToEndID)
		f.devolutions.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
		f.emitter.AssertExpectations(t)
	})

	t.Run("devolution", func(t *testing.T) {
		f := newInfractionFixture()
		infraction := incomingInfraction(models.TransactionTypeDevolution, models.PixInfractionStatusNew)
		devolution := &models.PixDevolution{DevolutionBase: models.DevolutionBase{ID: infraction.Transaction.ID, EndToEndID: "E-DEV"}}

		f.repo.On("GetByIssueID", mock.Anything, int64(77)).Return(nil, nil)
		f.devolutions.On("GetByID", mock.Anything, infraction.Transaction.ID).Return(devolution, nil)
		f.repo.On("Create", mock.Anything, infraction).Return(nil, nil)
		f.emitter.On("NewInfraction", mock.Anything, infraction).Return()

		created, err := f.create.Execute(context.Background(), infraction)

		require.NoError(t, err)
		assert.Equal(t, "E-DEV", created.EndToEndID)
		f.payments.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("missing transaction", func(t *testing.T) {
		f := newInfractionFixture()
		infraction := incomingInfraction(models.TransactionTypePayment, models.PixInfractionStatusNew)

		f.repo.On("GetByIssueID", mock.Anything, int64(77)).Return(nil, nil)
		f.payments.On("GetByID", mock.Anything, infraction.Transaction.ID).Return(nil, nil)

		_, err := f.create.Execute(context.Background(), infraction)

		var notFound *models.NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, models.EntityPayment, notFound.Entity)
		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestCreatePixInfraction_ReturnsExistingRecord(t *testing.T) {
	f := newInfractionFixture()
	existing := incomingInfraction(models.TransactionTypePayment, models.PixInfractionStatusNew)
	existing.ID = uuid.New()
	existing.State = models.PixInfractionStateNewConfirmed

	f.repo.On("GetByIssueID", mock.Anything, int64(77)).Return(existing, nil)

	// A replay may carry a later status; the stored record still wins.
	result, err := f.create.Execute(context.Background(), incomingInfraction(models.TransactionTypePayment, models.PixInfractionStatusOpen))

	require.NoError(t, err)
	assert.Same(t, existing, result)
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.emitter.AssertNotCalled(t, "NewInfraction", mock.Anything, mock.Anything)
}

func TestCreatePixInfraction_ConcurrentCreateEmitsOnce(t *testing.T) {
	f := newInfractionFixture()
	infraction := incomingInfraction(models.TransactionTypePayment, models.PixInfractionStatusNew)
	stored := incomingInfraction(models.TransactionTypePayment, models.PixInfractionStatusNew)
	stored.ID = uuid.New()
	stored.State = models.PixInfractionStateNewConfirmed

	// Both deliveries pass the lookup; the insert of the second one conflicts.
	f.repo.On("GetByIssueID", mock.Anything, int64(77)).Return(nil, nil)
	f.payments.On("GetByID", mock.Anything, infraction.Transaction.ID).Return(&models.Payment{ID: infraction.Transaction.ID}, nil)
	f.repo.On("Create", mock.Anything, infraction).Return(stored, nil)

	result, err := f.create.Execute(context.Background(), infraction)

	require.NoError(t, err)
	assert.Same(t, stored, result)
	f.emitter.AssertNotCalled(t, "NewInfraction", mock.Anything, mock.Anything)
}

func TestCreatePixInfraction_RejectsOutOfOrderStatus(t *testing.T) {
	f := newInfractionFixture()
	f.repo.On("GetByIssueID", mock.Anything, int64(77)).Return(nil, nil)

	_, err := f.create.Execute(context.Background(), incomingInfraction(models.TransactionTypePayment, models.PixInfractionStatusAcknowledged))

	var stateErr *models.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, string(models.PixInfractionStatusAcknowledged), stateErr.State)
	f.payments.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestCreatePixInfraction_ValidatesInput(t *testing.T) {
	f := newInfractionFixture()

	_, err := f.create.Execute(context.Background(), &models.PixInfraction{Transaction: models.Transaction{Type: "CARD"}})

	var missing *models.MissingDataError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"issueId", "infractionType", "status", "transaction.id", "transaction.type"}, missing.Fields)
	f.repo.AssertNotCalled(t, "GetByIssueID", mock.Anything, mock.Anything)
}

func TestCancelPixInfraction_States(t *testing.T) {
	tests := []struct {
		state   models.PixInfractionState
		wantErr bool
		applied bool
	}{
		{state: models.PixInfractionStateNewConfirmed, applied: true},
		{state: models.PixInfractionStateCancelPending},
		{state: models.PixInfractionStateCancelConfirmed},
		{state: models.PixInfractionStateClosedPending, wantErr: true},
		{state: models.PixInfractionStateClosedConfirmed, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			repo := new(MockPixInfractionRepository)
			emitter := new(MockInfractionEmitter)
			uc := NewCancelPixInfraction(repo, emitter)

			infraction := &models.PixInfraction{ID: uuid.New(), IssueID: 5, State: tt.state}
			repo.On("GetByIssueID", mock.Anything, int64(5)).Return(infraction, nil)
			repo.On("Update", mock.Anything, infraction, mock.Anything).Return(nil, nil).Maybe()
			emitter.On("CancelPendingInfraction", mock.Anything, infraction).Return().Maybe()

			_, err := uc.Execute(context.Background(), 5)

			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrInvalidState)
			} else {
				require.NoError(t, err)
			}
			if tt.applied {
				assert.Equal(t, models.PixInfractionStateCancelPending, infraction.State)
				emitter.AssertNumberOfCalls(t, "CancelPendingInfraction", 1)
			} else {
				repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
				emitter.AssertNotCalled(t, "CancelPendingInfraction", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestClosePixInfraction(t *testing.T) {
	t.Run("records the analysis", func(t *testing.T) {
		repo := new(MockPixInfractionRepository)
		emitter := new(MockInfractionEmitter)
		uc := NewClosePixInfraction(repo, emitter)

		infraction := &models.PixInfraction{ID: uuid.New(), IssueID: 9, State: models.PixInfractionStateNewConfirmed}
		repo.On("GetByIssueID", mock.Anything, int64(9)).Return(infraction, nil)
		repo.On("Update", mock.Anything, infraction, mock.Anything).Return(nil, nil)
		emitter.On("ClosePendingInfraction", mock.Anything, infraction).Return()

		result, err := uc.Execute(context.Background(), 9, models.PixInfractionAnalysisResultAgreed, "confirmed by payer bank")

		require.NoError(t, err)
		assert.Equal(t, models.PixInfractionStateClosedPending, result.State)
		assert.Equal(t, models.PixInfractionAnalysisResultAgreed, result.AnalysisResult)
		assert.Equal(t, "confirmed by payer bank", result.AnalysisDetails)
		emitter.AssertExpectations(t)
	})

	t.Run("cancelled infraction is rejected", func(t *testing.T) {
		repo := new(MockPixInfractionRepository)
		uc := NewClosePixInfraction(repo, new(MockInfractionEmitter))

		infraction := &models.PixInfraction{ID: uuid.New(), IssueID: 9, State: models.PixInfractionStateCancelPending}
		repo.On("GetByIssueID", mock.Anything, int64(9)).Return(infraction, nil)

		_, err := uc.Execute(context.Background(), 9, models.PixInfractionAnalysisResultDisagreed, "")

		assert.ErrorIs(t, err, models.ErrInvalidState)
	})

	t.Run("unknown issue", func(t *testing.T) {
		repo := new(MockPixInfractionRepository)
		uc := NewClosePixInfraction(repo, new(MockInfractionEmitter))
		repo.On("GetByIssueID", mock.Anything, int64(10)).Return(nil, nil)

		_, err := uc.Execute(context.Background(), 10, models.PixInfractionAnalysisResultAgreed, "")

		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}
