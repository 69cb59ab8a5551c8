package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType kind of journal entry.
type EventType string

const (
	EventTypeDecision EventType = "decision"
	EventTypeOutcome  EventType = "outcome"
)

// RiskDecisionEvent journaled risk evaluation.
type RiskDecisionEvent struct {
	ID           string       `json:"id"`
	Timestamp    time.Time    `json:"ts"`
	Pair         string       `json:"pair"`
	SnapshotTime time.Time    `json:"snapshot_ts"`
	Price        float64      `json:"price"`
	VolumeRatio  float64      `json:"volume_ratio"`
	Decision     RiskDecision `json:"decision"`
}

// NewRiskDecisionEvent creates an event with a fresh ID.
func NewRiskDecisionEvent(timestamp time.Time, pair Pair, snapshot IndicatorSnapshot, decision RiskDecision) RiskDecisionEvent {
	return RiskDecisionEvent{
		ID:           uuid.NewString(),
		Timestamp:    timestamp,
		Pair:         pair.String(),
		SnapshotTime: snapshot.Timestamp,
		Price:        snapshot.Price,
		VolumeRatio:  snapshot.VolumeRatio,
		Decision:     decision,
	}
}

// TradeOutcomeEvent journaled realized trade result.
type TradeOutcomeEvent struct {
	ID         string       `json:"id"`
	Pair       string       `json:"pair"`
	DecisionID string       `json:"decision_id,omitempty"`
	Outcome    TradeOutcome `json:"outcome"`
}

// NewTradeOutcomeEvent creates an outcome event with a fresh ID.
func NewTradeOutcomeEvent(pair Pair, decisionID string, outcome TradeOutcome) TradeOutcomeEvent {
	return TradeOutcomeEvent{
		ID:         uuid.NewString(),
		Pair:       pair.String(),
		DecisionID: decisionID,
		Outcome:    outcome,
	}
}

// EventRecord bundles a journal event with its WAL index.
type EventRecord struct {
	Index uint64    `json:"index"`
	Type  EventType `json:"type"`
	// Event is either RiskDecisionEvent or TradeOutcomeEvent
	Event any `json:"event"`
}
