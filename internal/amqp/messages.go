package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Action is the kind of change a bill event reports.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionDeleted:
		return true
	}
	return false
}

// BillEventMessage is a lightweight notification that a bill changed.
// Consumers load the current bill from the store themselves.
type BillEventMessage struct {
	Action    Action    `json:"action"`
	BillID    string    `json:"bill_id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBillEventMessage(action Action, billID, userID string) *BillEventMessage {
	return &BillEventMessage{
		Action:    action,
		BillID:    billID,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}
}

func (m *BillEventMessage) Validate() error {
	if !m.Action.Valid() {
		return fmt.Errorf("unknown action %q", m.Action)
	}
	if m.BillID == "" {
		return errors.New("bill_id is required")
	}
	return nil
}

func (m *BillEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BillEventMessageFromJSON decodes and validates a message body.
func BillEventMessageFromJSON(data []byte) (*BillEventMessage, error) {
	var msg BillEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
