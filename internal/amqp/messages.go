package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Operations carried by export messages.
const (
	OpExport = "export"
	OpDelete = "delete"
)

// ExportMessage asks the worker to mirror one expense to the export target.
// It carries only the id and operation; the worker loads the full record
// from storage when exporting.
type ExportMessage struct {
	ID        int64     `json:"id"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExportMessage creates a message for the given expense and operation.
func NewExportMessage(id int64, op string) *ExportMessage {
	return &ExportMessage{
		ID:        id,
		Op:        op,
		Timestamp: time.Now(),
	}
}

// Validate checks the message is well formed.
func (m *ExportMessage) Validate() error {
	if m.ID <= 0 {
		return fmt.Errorf("invalid expense id %d", m.ID)
	}
	if m.Op != OpExport && m.Op != OpDelete {
		return fmt.Errorf("unknown operation %q", m.Op)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *ExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExportMessageFromJSON creates a message from JSON bytes
func ExportMessageFromJSON(data []byte) (*ExportMessage, error) {
	var msg ExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
