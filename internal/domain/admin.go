package domain

// ConsumerGroupInfo represents information about a consumer group reading the record event stream.
type ConsumerGroupInfo struct {
	Name            string `json:"name"`
	Consumers       int64  `json:"consumers"`
	Pending         int64  `json:"pending"`
	LastDeliveredID string `json:"last_delivered_id"`
}

// PendingMessageSummary provides a summary of pending messages for a consumer group.
type PendingMessageSummary struct {
	Total          int64            `json:"total"`
	FirstMessageID string           `json:"first_message_id,omitempty"`
	LastMessageID  string           `json:"last_message_id,omitempty"`
	ConsumerTotals map[string]int64 `json:"consumer_totals,omitempty"`
}

// StreamStatus is the admin view of the record event stream.
type StreamStatus struct {
	Stream string              `json:"stream"`
	Length int64               `json:"length"`
	Groups []ConsumerGroupInfo `json:"groups"`
}
