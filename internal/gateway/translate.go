package gateway

import (
	"context"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/models"
)

const (
	DefaultFailedCode    = "PIX_PAYMENT_FAILED"
	DefaultFailedMessage = "The payment was refused by the receiving institution."
)

// Translator maps PSP error codes to failure reasons from a static table.
// Unknown codes get the default reason with the original code kept.
type Translator struct {
	messages map[string]string
}

func NewTranslator(messages map[string]string) *Translator {
	table := make(map[string]string, len(messages))
	for code, message := range messages {
		table[code] = message
	}
	return &Translator{messages: table}
}

func (t *Translator) TranslatePixPaymentFailed(_ context.Context, errorCode string) (*models.Failed, error) {
	if errorCode == "" {
		return &models.Failed{Code: DefaultFailedCode, Message: DefaultFailedMessage}, nil
	}
	if message, ok := t.messages[errorCode]; ok {
		return &models.Failed{Code: errorCode, Message: message}, nil
	}
	return &models.Failed{Code: errorCode, Message: DefaultFailedMessage}, nil
}
