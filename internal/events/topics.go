package events

// Topic suffixes shared by the payment and devolution families.
const (
	SuffixPending       = "pending"
	SuffixPendingFailed = "pending_failed"
	SuffixWaiting       = "waiting"
	SuffixCompleted     = "completed"
	SuffixReverted      = "reverted"
	SuffixConfirmed     = "confirmed"
	SuffixFailed        = "failed"
	SuffixChargeback    = "chargeback"
)

const (
	PaymentTopicPrefix              = "payment"
	PixDevolutionTopicPrefix        = "pix_devolution"
	PixRefundDevolutionTopicPrefix  = "pix_refund_devolution"
	WarningPixDevolutionTopicPrefix = "warning_pix_devolution"
)

const (
	TopicPixRefundCancel        = "pix_refund.cancel"
	TopicPixRefundClose         = "pix_refund.close"
	TopicPixRefundCancelPending = "pix_refund.cancel_pending"
	TopicPixRefundClosePending  = "pix_refund.close_pending"

	TopicPixInfractionCreate        = "pix_infraction.create"
	TopicPixInfractionCancel        = "pix_infraction.cancel"
	TopicPixInfractionClose         = "pix_infraction.close"
	TopicPixInfractionNew           = "pix_infraction.new"
	TopicPixInfractionCancelPending = "pix_infraction.cancel_pending"
	TopicPixInfractionClosePending  = "pix_infraction.close_pending"

	TopicPixFraudDetectionRegisterPending   = "pix_fraud_detection.register_pending"
	TopicPixFraudDetectionRegisterConfirmed = "pix_fraud_detection.register_confirmed"
	TopicPixFraudDetectionCancelPending     = "pix_fraud_detection.cancel_pending"
	TopicPixFraudDetectionCancelConfirmed   = "pix_fraud_detection.cancel_confirmed"
	TopicPixFraudDetectionFailed            = "pix_fraud_detection.failed"
	TopicPixFraudDetectionReceived          = "pix_fraud_detection.received"
)

func Topic(prefix, suffix string) string {
	return prefix + "." + suffix
}
