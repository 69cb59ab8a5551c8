// Package decisions journals risk decisions and realized trade outcomes in a WAL.
//
// Every event goes to the journal WAL, which backs the event stream and rotates
// with decision volume. Outcomes are also kept in a dedicated outcome WAL so the
// loss history feeding the circuit breaker never rotates out behind decisions.
package decisions

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
	"github.com/vadiminshakov/riskgate/internal/domain"
)

const (
	DefaultDir   = "./wal/decisions"
	segmentLimit = 100
	maxSegments  = 10

	journalPrefix = "decision_"
	outcomePrefix = "outcome_"

	decisionKeyPrefix = "risk_decision_"
	outcomeKeyPrefix  = "trade_outcome_"
)

// WALStore persists decision and outcome events in a WAL.
type WALStore struct {
	wal      *gowal.Wal
	outcomes *gowal.Wal
	mu       sync.RWMutex
}

// NewWALStore initializes a WAL-backed decision store.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	wal, err := gowal.NewWAL(walConfig(dir, journalPrefix))
	if err != nil {
		return nil, errors.Wrap(err, "init decision WAL")
	}

	outcomes, err := gowal.NewWAL(walConfig(dir, outcomePrefix))
	if err != nil {
		_ = wal.Close()
		return nil, errors.Wrap(err, "init outcome WAL")
	}

	return &WALStore{wal: wal, outcomes: outcomes}, nil
}

func walConfig(dir, prefix string) gowal.Config {
	return gowal.Config{
		Dir:              dir,
		Prefix:           prefix,
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}
}

// SaveDecision writes the risk decision event to WAL and returns its index.
func (s *WALStore) SaveDecision(event domain.RiskDecisionEvent) (uint64, error) {
	if event.Pair == "" {
		return 0, fmt.Errorf("risk decision event pair is required")
	}
	return s.write(decisionKeyPrefix+event.Pair, event)
}

// RecordOutcome writes a realized trade outcome to both WALs and returns its journal index.
func (s *WALStore) RecordOutcome(event domain.TradeOutcomeEvent) (uint64, error) {
	if event.Pair == "" {
		return 0, fmt.Errorf("trade outcome event pair is required")
	}
	if s == nil || s.outcomes == nil {
		return 0, errors.New("decision store is not initialized")
	}

	key := outcomeKeyPrefix + event.Pair
	payload, err := json.Marshal(event)
	if err != nil {
		return 0, errors.Wrapf(err, "marshal %s event", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.outcomes.Write(s.outcomes.CurrentIndex()+1, key, payload); err != nil {
		return 0, errors.Wrap(err, "write outcome")
	}
	idx, err := s.appendJournal(key, payload)
	if err != nil {
		return 0, err
	}
	return idx, nil
}

func (s *WALStore) write(key string, event any) (uint64, error) {
	if s == nil || s.wal == nil {
		return 0, errors.New("decision store is not initialized")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return 0, errors.Wrapf(err, "marshal %s event", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendJournal(key, payload)
}

func (s *WALStore) appendJournal(key string, payload []byte) (uint64, error) {
	nextIndex := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(nextIndex, key, payload); err != nil {
		return 0, errors.Wrap(err, "write event")
	}
	return nextIndex, nil
}


// EventsAfter returns all events written after the provided WAL index.
// Entries of segments already rotated out are skipped.
func (s *WALStore) EventsAfter(index uint64) ([]domain.EventRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("decision store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]domain.EventRecord, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil {
			continue
		}

		record, ok, err := decode(idx, key, payload)
		if err != nil {
			return nil, err
		}
		if ok {
			records = append(records, record)
		}
	}

	return records, nil
}

// RecentOutcomes returns up to n outcomes for pair, most recent first.
// It reads the outcome WAL, so decision traffic never pushes losses out.
func (s *WALStore) RecentOutcomes(pair domain.Pair, n int) ([]domain.TradeOutcome, error) {
	if s == nil || s.outcomes == nil {
		return nil, errors.New("decision store is not initialized")
	}
	if n <= 0 {
		return nil, nil
	}

	key := outcomeKeyPrefix + pair.String()

	s.mu.RLock()
	defer s.mu.RUnlock()

	outcomes := make([]domain.TradeOutcome, 0, n)
	for idx := s.outcomes.CurrentIndex(); idx > 0 && len(outcomes) < n; idx-- {
		k, payload, err := s.outcomes.Get(idx)
		if err != nil {
			// older entries were rotated out
			break
		}
		if k != key {
			continue
		}

		var event domain.TradeOutcomeEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, errors.Wrap(err, "decode trade outcome event")
		}
		outcomes = append(outcomes, event.Outcome)
	}

	return outcomes, nil
}

// FindDecision looks up a journaled decision by its event ID.
// Decisions in segments already rotated out are not found.
func (s *WALStore) FindDecision(id string) (domain.RiskDecisionEvent, bool, error) {
	if s == nil || s.wal == nil {
		return domain.RiskDecisionEvent{}, false, errors.New("decision store is not initialized")
	}
	if id == "" {
		return domain.RiskDecisionEvent{}, false, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for idx := s.wal.CurrentIndex(); idx > 0; idx-- {
		key, payload, err := s.wal.Get(idx)
		if err != nil {
			break
		}
		if !strings.HasPrefix(key, decisionKeyPrefix) {
			continue
		}

		var event domain.RiskDecisionEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return domain.RiskDecisionEvent{}, false, errors.Wrap(err, "decode risk decision event")
		}
		if event.ID == id {
			return event, true, nil
		}
	}

	return domain.RiskDecisionEvent{}, false, nil
}

func decode(idx uint64, key string, payload []byte) (domain.EventRecord, bool, error) {
	switch {
	case strings.HasPrefix(key, decisionKeyPrefix):
		var event domain.RiskDecisionEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return domain.EventRecord{}, false, errors.Wrap(err, "decode risk decision event")
		}
		return domain.EventRecord{Index: idx, Type: domain.EventTypeDecision, Event: event}, true, nil
	case strings.HasPrefix(key, outcomeKeyPrefix):
		var event domain.TradeOutcomeEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return domain.EventRecord{}, false, errors.Wrap(err, "decode trade outcome event")
		}
		return domain.EventRecord{Index: idx, Type: domain.EventTypeOutcome, Event: event}, true, nil
	}
	return domain.EventRecord{}, false, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes both WALs.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil || s.outcomes == nil {
		return errors.New("decision store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.outcomes.Close(); err != nil {
		_ = s.wal.Close()
		return errors.Wrap(err, "close outcome WAL")
	}
	return s.wal.Close()
}
