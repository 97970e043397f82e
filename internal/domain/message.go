package domain

import (
	"context"
	"time"
)

// RawMessage is an undecoded notification read from the refresh topic.
type RawMessage struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}
