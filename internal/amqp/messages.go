package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fxledger/internal/core"
)

// EventTransactionRecorded is the event type of TransactionRecordedMessage.
const EventTransactionRecorded = "transaction.recorded"

var ErrMalformedMessage = errors.New("malformed message")

// TransactionRecordedMessage announces a row that has been persisted. It
// carries the whole row so consumers need no database access.
type TransactionRecordedMessage struct {
	Type        string           `json:"type"`
	Transaction core.Transaction `json:"transaction"`
	Timestamp   time.Time        `json:"timestamp"`
}

func NewTransactionRecordedMessage(tx core.Transaction) *TransactionRecordedMessage {
	return &TransactionRecordedMessage{
		Type:        EventTransactionRecorded,
		Transaction: tx,
		Timestamp:   time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionRecordedMessageFromJSON decodes and checks a message body.
func TransactionRecordedMessageFromJSON(data []byte) (*TransactionRecordedMessage, error) {
	var msg TransactionRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if msg.Type != EventTransactionRecorded {
		return nil, fmt.Errorf("%w: unexpected type %q", ErrMalformedMessage, msg.Type)
	}
	tx := msg.Transaction
	if tx.ID == "" || tx.OwnerKey == "" || !tx.Kind.IsValid() {
		return nil, fmt.Errorf("%w: incomplete transaction", ErrMalformedMessage)
	}
	return &msg, nil
}
