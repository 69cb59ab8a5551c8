package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/riskgate/internal/domain"
)

type fakeService struct {
	snapshot    domain.IndicatorSnapshot
	snapshotErr error
	proposals   []domain.TradeProposal
	outcomes    []domain.TradeOutcome
	records     []domain.EventRecord
	decisions   map[string]bool
}

func (f *fakeService) Pair() domain.Pair {
	return domain.Pair{From: "SOL", To: "USDT"}
}

func (f *fakeService) Snapshot(context.Context) (domain.IndicatorSnapshot, error) {
	return f.snapshot, f.snapshotErr
}

func (f *fakeService) Evaluate(_ context.Context, proposal domain.TradeProposal, portfolio domain.PortfolioContext) (domain.RiskDecisionEvent, error) {
	if f.snapshotErr != nil {
		return domain.RiskDecisionEvent{}, f.snapshotErr
	}
	f.proposals = append(f.proposals, proposal)
	decision := domain.RiskDecision{Proposal: proposal, BlockingGate: "volume_dead"}
	return domain.NewRiskDecisionEvent(time.Now(), f.Pair(), f.snapshot, decision), nil
}

func (f *fakeService) RecordOutcome(decisionID string, outcome domain.TradeOutcome) (domain.TradeOutcomeEvent, error) {
	if decisionID == "" {
		return domain.TradeOutcomeEvent{}, domain.ErrDecisionIDRequired
	}
	if !f.decisions[decisionID] {
		return domain.TradeOutcomeEvent{}, errors.Wrapf(domain.ErrDecisionNotFound, "decision %q", decisionID)
	}
	f.outcomes = append(f.outcomes, outcome)
	return domain.NewTradeOutcomeEvent(f.Pair(), decisionID, outcome), nil
}

func (f *fakeService) EventsAfter(index uint64) ([]domain.EventRecord, error) {
	var out []domain.EventRecord
	for _, r := range f.records {
		if r.Index > index {
			out = append(out, r)
		}
	}
	return out, nil
}

func newTestServer(svc *fakeService) http.Handler {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("riskgate_decisions_total 1\n"))
	})
	return NewServer(zap.NewNop(), ":0", svc, metrics).Routes()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(&fakeService{})

	rec := do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","pair":"SOL_USDT"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "riskgate_decisions_total")
}

func TestSnapshot(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		h := newTestServer(&fakeService{snapshot: domain.IndicatorSnapshot{Price: 142.5, VolumeRatio: 0.65}})
		rec := do(t, h, http.MethodGet, "/api/snapshot", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var got map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, 142.5, got["price"])
		assert.Equal(t, 0.65, got["volume_ratio"])
	})

	t.Run("insufficient history", func(t *testing.T) {
		svc := &fakeService{snapshotErr: errors.Wrap(domain.ErrInsufficientHistory, "SOL_USDT")}
		rec := do(t, newTestServer(svc), http.MethodGet, "/api/snapshot", "")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("upstream failure", func(t *testing.T) {
		svc := &fakeService{snapshotErr: errors.New("exchange down")}
		rec := do(t, newTestServer(svc), http.MethodGet, "/api/snapshot", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "exchange down")
	})
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"valid", `{"proposal":{"side":"buy","confidence":0.8},"portfolio":{"total_balance":10000}}`, http.StatusOK},
		{"bad side", `{"proposal":{"side":"long","confidence":0.8}}`, http.StatusBadRequest},
		{"confidence out of range", `{"proposal":{"side":"BUY","confidence":1.5}}`, http.StatusBadRequest},
		{"negative balance", `{"proposal":{"side":"BUY"},"portfolio":{"total_balance":-1}}`, http.StatusBadRequest},
		{"unknown field", `{"proposal":{"side":"BUY"},"leverage":10}`, http.StatusBadRequest},
		{"malformed", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			rec := do(t, newTestServer(svc), http.MethodPost, "/api/evaluate", tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusOK {
				assert.Empty(t, svc.proposals)
				return
			}

			require.Len(t, svc.proposals, 1)
			assert.Equal(t, domain.SideBuy, svc.proposals[0].Side)

			var event domain.RiskDecisionEvent
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &event))
			assert.NotEmpty(t, event.ID)
			assert.Equal(t, "volume_dead", event.Decision.BlockingGate)
		})
	}
}

func TestOutcomes(t *testing.T) {
	svc := &fakeService{decisions: map[string]bool{"abc": true}}
	h := newTestServer(svc)

	rec := do(t, h, http.MethodPost, "/api/outcomes", `{"decision_id":"abc","realized_pnl":-12.5}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, svc.outcomes, 1)
	assert.Equal(t, -12.5, svc.outcomes[0].RealizedPnL)

	var event domain.TradeOutcomeEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &event))
	assert.Equal(t, "abc", event.DecisionID)

	rec = do(t, h, http.MethodPost, "/api/outcomes", `{"decision_id":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, svc.outcomes, 1)
}

func TestOutcomes_DecisionReference(t *testing.T) {
	svc := &fakeService{decisions: map[string]bool{"abc": true}}
	h := newTestServer(svc)

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"missing decision id", `{"realized_pnl":-12.5}`, http.StatusBadRequest},
		{"empty decision id", `{"decision_id":"","realized_pnl":-12.5}`, http.StatusBadRequest},
		{"unknown decision id", `{"decision_id":"nope","realized_pnl":-12.5}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/outcomes", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
	assert.Empty(t, svc.outcomes)
}

func TestDecisions(t *testing.T) {
	svc := &fakeService{records: []domain.EventRecord{
		{Index: 1, Type: domain.EventTypeDecision, Event: domain.RiskDecisionEvent{ID: "d1", Pair: "SOL_USDT"}},
		{Index: 2, Type: domain.EventTypeOutcome, Event: domain.TradeOutcomeEvent{ID: "o1", Pair: "SOL_USDT"}},
	}}
	h := newTestServer(svc)

	tests := []struct {
		target   string
		wantCode int
		wantLen  int
	}{
		{"/api/decisions", http.StatusOK, 2},
		{"/api/decisions?after=1", http.StatusOK, 1},
		{"/api/decisions?after=2", http.StatusOK, 0},
		{"/api/decisions?after=-1", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.target, "")
			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode != http.StatusOK {
				return
			}
			var records []map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
			assert.Len(t, records, tt.wantLen)
		})
	}
}

func TestDecisionStreamInitialLoad(t *testing.T) {
	svc := &fakeService{records: []domain.EventRecord{
		{Index: 1, Type: domain.EventTypeDecision, Event: domain.RiskDecisionEvent{ID: "d1"}},
		{Index: 2, Type: domain.EventTypeOutcome, Event: domain.TradeOutcomeEvent{ID: "o1"}},
	}}
	h := newTestServer(svc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/decisions/stream?after=1", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "id: 2\nevent: outcome\n")
	assert.Contains(t, body, `"id":"o1"`)
	assert.NotContains(t, body, `"id":"d1"`)
}
