package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/interfaces"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/telemetry"
)

const SubjectUpdatePixFraudDetectionIssue = "issue.pix_fraud_detection.update"

// requester is the slice of *nats.Conn the issue gateway needs.
type requester interface {
	RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error)
}

type issueReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// IssueClient updates the issue tracker over NATS request/reply.
type IssueClient struct {
	nc      requester
	timeout time.Duration
}

func NewIssueClient(nc requester, timeout time.Duration) *IssueClient {
	return &IssueClient{nc: nc, timeout: timeout}
}

func (c *IssueClient) UpdatePixFraudDetectionIssue(ctx context.Context, req interfaces.UpdatePixFraudDetectionIssueRequest) error {
	ctx, span := telemetry.StartSpan(ctx, "issue.update_pix_fraud_detection")
	defer span.End()

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode issue update: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	msg, err := c.nc.RequestWithContext(ctx, SubjectUpdatePixFraudDetectionIssue, payload)
	if err != nil {
		telemetry.Logger.Warn("Issue tracker request failed",
			zap.Int64("issue_id", req.IssueID),
			zap.Error(err),
		)
		telemetry.GatewayCallsTotal.WithLabelValues("issue", "update_fraud_detection", "error").Inc()
		return fmt.Errorf("failed to update issue %d: %w", req.IssueID, err)
	}

	var reply issueReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		telemetry.GatewayCallsTotal.WithLabelValues("issue", "update_fraud_detection", "error").Inc()
		return fmt.Errorf("failed to decode issue reply: %w", err)
	}
	if !reply.OK {
		telemetry.GatewayCallsTotal.WithLabelValues("issue", "update_fraud_detection", "rejected").Inc()
		return fmt.Errorf("issue %d update rejected: %s", req.IssueID, reply.Error)
	}

	telemetry.GatewayCallsTotal.WithLabelValues("issue", "update_fraud_detection", "ok").Inc()
	return nil
}
