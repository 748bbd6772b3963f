package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/models"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/telemetry"
)

// LedgerError is a non-2xx answer from the operation service.
type LedgerError struct {
	StatusCode  int    `json:"-"`
	OperationID string `json:"-"`
	Message     string `json:"message"`
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("ledger returned %d for operation %s: %s", e.StatusCode, e.OperationID, e.Message)
}

// OperationClient is the ledger operation service client.
type OperationClient struct {
	client *resty.Client
}

func NewOperationClient(baseURL string, timeout time.Duration) *OperationClient {
	return &OperationClient{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
	}
}

// GetOperationByID returns nil when the ledger no longer knows the operation.
func (c *OperationClient) GetOperationByID(ctx context.Context, id uuid.UUID) (*models.Operation, error) {
	ctx, span := telemetry.StartSpan(ctx, "ledger.get_operation")
	defer span.End()

	var out models.Operation
	var body LedgerError
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("id", id.String()).
		SetResult(&out).
		SetError(&body).
		Get("/operations/{id}")
	if err != nil {
		telemetry.GatewayCallsTotal.WithLabelValues("ledger", "get_operation", "error").Inc()
		return nil, fmt.Errorf("failed to get operation %s: %w", id, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		telemetry.GatewayCallsTotal.WithLabelValues("ledger", "get_operation", "not_found").Inc()
		return nil, nil
	}
	if resp.IsError() {
		telemetry.GatewayCallsTotal.WithLabelValues("ledger", "get_operation", "rejected").Inc()
		body.StatusCode = resp.StatusCode()
		body.OperationID = id.String()
		return nil, &body
	}

	telemetry.GatewayCallsTotal.WithLabelValues("ledger", "get_operation", "ok").Inc()
	return &out, nil
}

func (c *OperationClient) AcceptOperation(ctx context.Context, operation *models.Operation) error {
	return c.settle(ctx, "accept", operation)
}

func (c *OperationClient) RevertOperation(ctx context.Context, operation *models.Operation) error {
	return c.settle(ctx, "revert", operation)
}

func (c *OperationClient) settle(ctx context.Context, action string, operation *models.Operation) error {
	ctx, span := telemetry.StartSpan(ctx, "ledger."+action+"_operation")
	defer span.End()

	metric := action + "_operation"

	var body LedgerError
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("id", operation.ID.String()).
		SetPathParam("action", action).
		SetError(&body).
		Post("/operations/{id}/{action}")
	if err != nil {
		telemetry.GatewayCallsTotal.WithLabelValues("ledger", metric, "error").Inc()
		return fmt.Errorf("failed to %s operation %s: %w", action, operation.ID, err)
	}
	if resp.IsError() {
		telemetry.GatewayCallsTotal.WithLabelValues("ledger", metric, "rejected").Inc()
		body.StatusCode = resp.StatusCode()
		body.OperationID = operation.ID.String()
		return &body
	}

	telemetry.GatewayCallsTotal.WithLabelValues("ledger", metric, "ok").Inc()
	return nil
}
