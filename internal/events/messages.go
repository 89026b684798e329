// Package events publishes and consumes analysis lifecycle messages.
package events

import (
	"encoding/json"
	"fmt"

	"github.com/dvloznov/statement-insights/internal/domain"
)

// MessageTypeAnalysisCompleted is carried in the AMQP Type property.
const MessageTypeAnalysisCompleted = "analysis.completed"

// encodeAnalysisCompleted renders the message body.
func encodeAnalysisCompleted(event domain.AnalysisCompleted) ([]byte, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	return body, nil
}

// DecodeAnalysisCompleted parses a message body produced by the publisher.
func DecodeAnalysisCompleted(body []byte) (domain.AnalysisCompleted, error) {
	var event domain.AnalysisCompleted
	if err := json.Unmarshal(body, &event); err != nil {
		return event, fmt.Errorf("unmarshal message: %w", err)
	}
	return event, nil
}
