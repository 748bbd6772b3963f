package gateway

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/interfaces"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/telemetry"
)

// ErrCircuitOpen is returned without calling the PSP while the breaker is open.
var ErrCircuitOpen = errors.New("psp circuit breaker open")

// PSPError is a non-2xx answer from the PSP.
type PSPError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *PSPError) Error() string {
	return fmt.Sprintf("psp returned %d: %s %s", e.StatusCode, e.Code, e.Message)
}

type PSPConfig struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
	// Consecutive server-side failures before the breaker opens.
	MaxFailures  uint32
	OpenTimeout  time.Duration
	HalfOpenReqs uint32
}

// PSPClient implements the payment and fraud detection gateways over the
// PSP REST API. Only transport errors and 5xx answers count against the
// breaker.
type PSPClient struct {
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker
}

func NewPSPClient(cfg PSPConfig) *PSPClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetHeader("Content-Type", "application/json")

	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "psp",
		MaxRequests: cfg.HalfOpenReqs,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			telemetry.Logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &PSPClient{client: client, breaker: breaker}
}

// call runs one request through the breaker. A 4xx answer is returned as a
// PSPError but is not recorded as a breaker failure.
func (c *PSPClient) call(ctx context.Context, operation string, result any, send func(*resty.Request) (*resty.Response, error)) error {
	ctx, span := telemetry.StartSpan(ctx, "psp."+operation)
	defer span.End()

	clientErr, err := c.breaker.Execute(func() (any, error) {
		var body PSPError
		resp, err := send(c.client.R().SetContext(ctx).SetResult(result).SetError(&body))
		if err != nil {
			return nil, fmt.Errorf("psp %s: %w", operation, err)
		}

		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode()))
		if !resp.IsError() {
			return nil, nil
		}

		body.StatusCode = resp.StatusCode()
		if resp.StatusCode() >= 500 {
			return nil, &body
		}
		return &body, nil
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		telemetry.GatewayCallsTotal.WithLabelValues("psp", operation, "circuit_open").Inc()
		return fmt.Errorf("psp %s: %w", operation, ErrCircuitOpen)
	case err != nil:
		telemetry.GatewayCallsTotal.WithLabelValues("psp", operation, "error").Inc()
		span.RecordError(err)
		return err
	case clientErr != nil:
		telemetry.GatewayCallsTotal.WithLabelValues("psp", operation, "rejected").Inc()
		return clientErr.(*PSPError)
	}

	telemetry.GatewayCallsTotal.WithLabelValues("psp", operation, "ok").Inc()
	return nil
}

func (c *PSPClient) CreatePayment(ctx context.Context, req interfaces.CreatePaymentRequest) (*interfaces.CreatedTransactionResponse, error) {
	var out interfaces.CreatedTransactionResponse
	err := c.call(ctx, "create_payment", &out, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(req).Post("/pix/payments")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *PSPClient) CreatePixDevolution(ctx context.Context, req interfaces.CreatePixDevolutionRequest) (*interfaces.CreatedTransactionResponse, error) {
	var out interfaces.CreatedTransactionResponse
	err := c.call(ctx, "create_devolution", &out, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(req).Post("/pix/devolutions")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *PSPClient) GetPaymentByID(ctx context.Context, req interfaces.GetPaymentByIDRequest) (*interfaces.PaymentStatusResponse, error) {
	var out interfaces.PaymentStatusResponse
	err := c.call(ctx, "get_payment_by_id", &out, func(r *resty.Request) (*resty.Response, error) {
		return r.
			SetPathParam("id", req.ID.String()).
			SetQueryParam("external_id", req.ExternalID).
			Get("/pix/payments/{id}")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *PSPClient) GetPayment(ctx context.Context, req interfaces.GetPaymentRequest) (*interfaces.PaymentStatusResponse, error) {
	var out interfaces.PaymentStatusResponse
	err := c.call(ctx, "get_payment", &out, func(r *resty.Request) (*resty.Response, error) {
		return r.
			SetQueryParams(map[string]string{
				"id":            req.ID.String(),
				"end_to_end_id": req.EndToEndID,
			}).
			Get("/pix/payments")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *PSPClient) CreateFraudDetection(ctx context.Context, req interfaces.CreateFraudDetectionRequest) (*interfaces.FraudDetectionResponse, error) {
	var out interfaces.FraudDetectionResponse
	err := c.call(ctx, "create_fraud_detection", &out, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(req).Post("/pix/fraud-detections")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *PSPClient) CancelFraudDetection(ctx context.Context, req interfaces.CancelFraudDetectionRequest) (*interfaces.FraudDetectionResponse, error) {
	var out interfaces.FraudDetectionResponse
	err := c.call(ctx, "cancel_fraud_detection", &out, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", req.FraudDetectionID).Post("/pix/fraud-detections/{id}/cancel")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *PSPClient) GetAllFraudDetection(ctx context.Context, req interfaces.GetAllFraudDetectionRequest) (*interfaces.GetAllFraudDetectionResponse, error) {
	var out interfaces.GetAllFraudDetectionResponse
	err := c.call(ctx, "list_fraud_detections", &out, func(r *resty.Request) (*resty.Response, error) {
		return r.
			SetQueryParams(map[string]string{
				"created_at_start": req.CreatedAtStart.UTC().Format(time.RFC3339),
				"created_at_end":   req.CreatedAtEnd.UTC().Format(time.RFC3339),
				"page":             strconv.Itoa(req.Page),
				"size":             strconv.Itoa(req.Size),
			}).
			Get("/pix/fraud-detections")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *PSPClient) GetByIDFraudDetection(ctx context.Context, fraudDetectionID string) (*interfaces.FraudDetectionResponse, error) {
	var out interfaces.FraudDetectionResponse
	err := c.call(ctx, "get_fraud_detection", &out, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", fraudDetectionID).Get("/pix/fraud-detections/{id}")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
