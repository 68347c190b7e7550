package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"finpilot/internal/core"
)

// TransactionCreatedMessage carries a full snapshot of a stored transaction
// so consumers do not need access to the API's database.
type TransactionCreatedMessage struct {
	Transaction core.Transaction `json:"transaction"`
	Timestamp   time.Time        `json:"timestamp"`
}

func NewTransactionCreatedMessage(t core.Transaction) *TransactionCreatedMessage {
	return &TransactionCreatedMessage{
		Transaction: t,
		Timestamp:   time.Now().UTC(),
	}
}

func (m *TransactionCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionCreatedMessageFromJSON decodes and sanity-checks a message body
func TransactionCreatedMessageFromJSON(data []byte) (*TransactionCreatedMessage, error) {
	var msg TransactionCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Transaction.ID == "" || msg.Transaction.UserID == "" {
		return nil, errors.New("message has no transaction id or user id")
	}
	return &msg, nil
}
