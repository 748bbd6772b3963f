package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/interfaces"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/models"
)

// Update mocks echo the entity they receive unless the test returns another one.

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	args := m.Called(ctx, id)
	payment, _ := args.Get(0).(*models.Payment)
	return payment, args.Error(1)
}

func (m *MockPaymentRepository) Update(ctx context.Context, payment *models.Payment, from models.PaymentState) (*models.Payment, error) {
	args := m.Called(ctx, payment, from)
	if ret, ok := args.Get(0).(*models.Payment); ok && ret != nil {
		return ret, args.Error(1)
	}
	return payment, args.Error(1)
}

func (m *MockPaymentRepository) GetAllByStateAndThresholdDate(ctx context.Context, state models.PaymentState, date time.Time, comparison models.ThresholdDateComparisonType) ([]*models.Payment, error) {
	args := m.Called(ctx, state, date, comparison)
	payments, _ := args.Get(0).([]*models.Payment)
	return payments, args.Error(1)
}

type MockDevolutionRepository[T models.Devolution] struct {
	mock.Mock
}

func (m *MockDevolutionRepository[T]) GetByID(ctx context.Context, id uuid.UUID) (T, error) {
	args := m.Called(ctx, id)
	devolution, _ := args.Get(0).(T)
	return devolution, args.Error(1)
}

func (m *MockDevolutionRepository[T]) Create(ctx context.Context, devolution T) (T, error) {
	var zero T
	args := m.Called(ctx, devolution)
	if ret, ok := args.Get(0).(T); ok && ret != zero {
		return ret, args.Error(1)
	}
	return devolution, args.Error(1)
}

func (m *MockDevolutionRepository[T]) Update(ctx context.Context, devolution T, from models.DevolutionState) (T, error) {
	var zero T
	args := m.Called(ctx, devolution, from)
	if ret, ok := args.Get(0).(T); ok && ret != zero {
		return ret, args.Error(1)
	}
	return devolution, args.Error(1)
}

func (m *MockDevolutionRepository[T]) GetAllByStateAndThresholdDate(ctx context.Context, state models.DevolutionState, date time.Time, comparison models.ThresholdDateComparisonType) ([]T, error) {
	args := m.Called(ctx, state, date, comparison)
	devolutions, _ := args.Get(0).([]T)
	return devolutions, args.Error(1)
}

type MockPixDepositRepository struct {
	mock.Mock
}

func (m *MockPixDepositRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PixDeposit, error) {
	args := m.Called(ctx, id)
	deposit, _ := args.Get(0).(*models.PixDeposit)
	return deposit, args.Error(1)
}

func (m *MockPixDepositRepository) SubtractReturnedAmount(ctx context.Context, id uuid.UUID, amount int64) (*models.PixDeposit, error) {
	args := m.Called(ctx, id, amount)
	deposit, _ := args.Get(0).(*models.PixDeposit)
	return deposit, args.Error(1)
}

type MockPixRefundRepository struct {
	mock.Mock
}

func (m *MockPixRefundRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PixRefund, error) {
	args := m.Called(ctx, id)
	refund, _ := args.Get(0).(*models.PixRefund)
	return refund, args.Error(1)
}

func (m *MockPixRefundRepository) Update(ctx context.Context, refund *models.PixRefund, from models.PixRefundState) (*models.PixRefund, error) {
	args := m.Called(ctx, refund, from)
	if ret, ok := args.Get(0).(*models.PixRefund); ok && ret != nil {
		return ret, args.Error(1)
	}
	return refund, args.Error(1)
}

type MockRefundOperationRepository struct {
	mock.Mock
}

func (m *MockRefundOperationRepository) GetAllByFilter(ctx context.Context, filter models.PixInfractionRefundOperationFilter) ([]*models.PixInfractionRefundOperation, error) {
	args := m.Called(ctx, filter)
	operations, _ := args.Get(0).([]*models.PixInfractionRefundOperation)
	return operations, args.Error(1)
}

func (m *MockRefundOperationRepository) Update(
	ctx context.Context,
	refundOperation *models.PixInfractionRefundOperation,
	from models.PixInfractionRefundOperationState,
) (*models.PixInfractionRefundOperation, error) {
	args := m.Called(ctx, refundOperation, from)
	if ret, ok := args.Get(0).(*models.PixInfractionRefundOperation); ok && ret != nil {
		return ret, args.Error(1)
	}
	return refundOperation, args.Error(1)
}

type MockPixInfractionRepository struct {
	mock.Mock
}

func (m *MockPixInfractionRepository) GetByIssueID(ctx context.Context, issueID int64) (*models.PixInfraction, error) {
	args := m.Called(ctx, issueID)
	infraction, _ := args.Get(0).(*models.PixInfraction)
	return infraction, args.Error(1)
}

// Create reports created true unless the test returns a stored record.
func (m *MockPixInfractionRepository) Create(ctx context.Context, infraction *models.PixInfraction) (*models.PixInfraction, bool, error) {
	args := m.Called(ctx, infraction)
	if ret, ok := args.Get(0).(*models.PixInfraction); ok && ret != nil {
		return ret, false, args.Error(1)
	}
	return infraction, true, args.Error(1)
}

func (m *MockPixInfractionRepository) Update(ctx context.Context, infraction *models.PixInfraction, from models.PixInfractionState) (*models.PixInfraction, error) {
	args := m.Called(ctx, infraction, from)
	if ret, ok := args.Get(0).(*models.PixInfraction); ok && ret != nil {
		return ret, args.Error(1)
	}
	return infraction, args.Error(1)
}

type MockPixFraudDetectionRepository struct {
	mock.Mock
}

func (m *MockPixFraudDetectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PixFraudDetection, error) {
	args := m.Called(ctx, id)
	fraudDetection, _ := args.Get(0).(*models.PixFraudDetection)
	return fraudDetection, args.Error(1)
}

func (m *MockPixFraudDetectionRepository) GetByExternalID(ctx context.Context, externalID string) (*models.PixFraudDetection, error) {
	args := m.Called(ctx, externalID)
	fraudDetection, _ := args.Get(0).(*models.PixFraudDetection)
	return fraudDetection, args.Error(1)
}

func (m *MockPixFraudDetectionRepository) Create(ctx context.Context, fraudDetection *models.PixFraudDetection) (*models.PixFraudDetection, error) {
	args := m.Called(ctx, fraudDetection)
	if ret, ok := args.Get(0).(*models.PixFraudDetection); ok && ret != nil {
		return ret, args.Error(1)
	}
	return fraudDetection, args.Error(1)
}

func (m *MockPixFraudDetectionRepository) Update(ctx context.Context, fraudDetection *models.PixFraudDetection, from models.PixFraudDetectionState) (*models.PixFraudDetection, error) {
	args := m.Called(ctx, fraudDetection, from)
	if ret, ok := args.Get(0).(*models.PixFraudDetection); ok && ret != nil {
		return ret, args.Error(1)
	}
	return fraudDetection, args.Error(1)
}

func (m *MockPixFraudDetectionRepository) GetAllByStateAndThresholdDate(ctx context.Context, state models.PixFraudDetectionState, date time.Time, comparison models.ThresholdDateComparisonType) ([]*models.PixFraudDetection, error) {
	args := m.Called(ctx, state, date, comparison)
	fraudDetections, _ := args.Get(0).([]*models.PixFraudDetection)
	return fraudDetections, args.Error(1)
}

// fakeTransactor runs fn directly; it records how many units of work ran.
type fakeTransactor struct {
	runs int
}

func (f *fakeTransactor) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.runs++
	return fn(ctx)
}

type MockOperationService struct {
	mock.Mock
}

func (m *MockOperationService) GetOperationByID(ctx context.Context, id uuid.UUID) (*models.Operation, error) {
	args := m.Called(ctx, id)
	operation, _ := args.Get(0).(*models.Operation)
	return operation, args.Error(1)
}

func (m *MockOperationService) AcceptOperation(ctx context.Context, operation *models.Operation) error {
	return m.Called(ctx, operation).Error(0)
}

func (m *MockOperationService) RevertOperation(ctx context.Context, operation *models.Operation) error {
	return m.Called(ctx, operation).Error(0)
}

type MockPixPaymentGateway struct {
	mock.Mock
}

func (m *MockPixPaymentGateway) CreatePayment(ctx context.Context, req interfaces.CreatePaymentRequest) (*interfaces.CreatedTransactionResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*interfaces.CreatedTransactionResponse)
	return resp, args.Error(1)
}

func (m *MockPixPaymentGateway) CreatePixDevolution(ctx context.Context, req interfaces.CreatePixDevolutionRequest) (*interfaces.CreatedTransactionResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*interfaces.CreatedTransactionResponse)
	return resp, args.Error(1)
}

func (m *MockPixPaymentGateway) GetPaymentByID(ctx context.Context, req interfaces.GetPaymentByIDRequest) (*interfaces.PaymentStatusResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*interfaces.PaymentStatusResponse)
	return resp, args.Error(1)
}

func (m *MockPixPaymentGateway) GetPayment(ctx context.Context, req interfaces.GetPaymentRequest) (*interfaces.PaymentStatusResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*interfaces.PaymentStatusResponse)
	return resp, args.Error(1)
}

type MockFraudDetectionGateway struct {
	mock.Mock
}

func (m *MockFraudDetectionGateway) CreateFraudDetection(ctx context.Context, req interfaces.CreateFraudDetectionRequest) (*interfaces.FraudDetectionResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*interfaces.FraudDetectionResponse)
	return resp, args.Error(1)
}

func (m *MockFraudDetectionGateway) CancelFraudDetection(ctx context.Context, req interfaces.CancelFraudDetectionRequest) (*interfaces.FraudDetectionResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*interfaces.FraudDetectionResponse)
	return resp, args.Error(1)
}

func (m *MockFraudDetectionGateway) GetAllFraudDetection(ctx context.Context, req interfaces.GetAllFraudDetectionRequest) (*interfaces.GetAllFraudDetectionResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*interfaces.GetAllFraudDetectionResponse)
	return resp, args.Error(1)
}

func (m *MockFraudDetectionGateway) GetByIDFraudDetection(ctx context.Context, fraudDetectionID string) (*interfaces.FraudDetectionResponse, error) {
	args := m.Called(ctx, fraudDetectionID)
	resp, _ := args.Get(0).(*interfaces.FraudDetectionResponse)
	return resp, args.Error(1)
}

type MockIssueGateway struct {
	mock.Mock
}

func (m *MockIssueGateway) UpdatePixFraudDetectionIssue(ctx context.Context, req interfaces.UpdatePixFraudDetectionIssueRequest) error {
	return m.Called(ctx, req).Error(0)
}

type MockTranslateService struct {
	mock.Mock
}

func (m *MockTranslateService) TranslatePixPaymentFailed(ctx context.Context, errorCode string) (*models.Failed, error) {
	args := m.Called(ctx, errorCode)
	failed, _ := args.Get(0).(*models.Failed)
	return failed, args.Error(1)
}

type MockPaymentEmitter struct {
	mock.Mock
}

func (m *MockPaymentEmitter) WaitingPayment(ctx context.Context, payment *models.Payment) {
	m.Called(ctx, payment)
}

func (m *MockPaymentEmitter) CompletedPayment(ctx context.Context, payment *models.Payment) {
	m.Called(ctx, payment)
}

func (m *MockPaymentEmitter) RevertedPayment(ctx context.Context, payment *models.Payment) {
	m.Called(ctx, payment)
}

func (m *MockPaymentEmitter) ConfirmedPayment(ctx context.Context, payment *models.Payment) {
	m.Called(ctx, payment)
}

func (m *MockPaymentEmitter) FailedPayment(ctx context.Context, payment *models.Payment) {
	m.Called(ctx, payment)
}

type MockDevolutionEmitter[T models.Devolution] struct {
	mock.Mock
}

func (m *MockDevolutionEmitter[T]) PendingDevolution(ctx context.Context, devolution T) {
	m.Called(ctx, devolution)
}

func (m *MockDevolutionEmitter[T]) WaitingDevolution(ctx context.Context, devolution T) {
	m.Called(ctx, devolution)
}

func (m *MockDevolutionEmitter[T]) CompletedDevolution(ctx context.Context, devolution T) {
	m.Called(ctx, devolution)
}

func (m *MockDevolutionEmitter[T]) RevertedDevolution(ctx context.Context, devolution T) {
	m.Called(ctx, devolution)
}

func (m *MockDevolutionEmitter[T]) ConfirmedDevolution(ctx context.Context, devolution T) {
	m.Called(ctx, devolution)
}

func (m *MockDevolutionEmitter[T]) FailedDevolution(ctx context.Context, devolution T) {
	m.Called(ctx, devolution)
}

type MockRefundEmitter struct {
	mock.Mock
}

func (m *MockRefundEmitter) CancelPendingRefund(ctx context.Context, refund *models.PixRefund) {
	m.Called(ctx, refund)
}

func (m *MockRefundEmitter) ClosePendingRefund(ctx context.Context, refund *models.PixRefund) {
	m.Called(ctx, refund)
}

type MockInfractionEmitter struct {
	mock.Mock
}

func (m *MockInfractionEmitter) NewInfraction(ctx context.Context, infraction *models.PixInfraction) {
	m.Called(ctx, infraction)
}

func (m *MockInfractionEmitter) CancelPendingInfraction(ctx context.Context, infraction *models.PixInfraction) {
	m.Called(ctx, infraction)
}

func (m *MockInfractionEmitter) ClosePendingInfraction(ctx context.Context, infraction *models.PixInfraction) {
	m.Called(ctx, infraction)
}

type MockFraudDetectionEmitter struct {
	mock.Mock
}

func (m *MockFraudDetectionEmitter) RegisterPendingPixFraudDetection(ctx context.Context, fraudDetection *models.PixFraudDetection) {
	m.Called(ctx, fraudDetection)
}

func (m *MockFraudDetectionEmitter) RegisterConfirmedPixFraudDetection(ctx context.Context, fraudDetection *models.PixFraudDetection) {
	m.Called(ctx, fraudDetection)
}

func (m *MockFraudDetectionEmitter) CancelConfirmedPixFraudDetection(ctx context.Context, fraudDetection *models.PixFraudDetection) {
	m.Called(ctx, fraudDetection)
}

func (m *MockFraudDetectionEmitter) FailedPixFraudDetection(ctx context.Context, fraudDetection *models.PixFraudDetection) {
	m.Called(ctx, fraudDetection)
}

func (m *MockFraudDetectionEmitter) ReceivedPixFraudDetection(ctx context.Context, fraudDetection *models.PixFraudDetection) {
	m.Called(ctx, fraudDetection)
}
