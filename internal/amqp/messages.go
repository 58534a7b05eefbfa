package amqp

import (
	"encoding/json"
	"time"
)

// CacheWarmMessage asks a worker to precompute a user's hot cache entries.
// It carries no ledger data: the worker reads current state when it runs.
type CacheWarmMessage struct {
	UserID    int64     `json:"userId"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func NewCacheWarmMessage(userID int64, reason string) *CacheWarmMessage {
	return &CacheWarmMessage{
		UserID:    userID,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

func (m *CacheWarmMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func CacheWarmMessageFromJSON(data []byte) (*CacheWarmMessage, error) {
	var msg CacheWarmMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
