// Package ingest accepts externally reported agent runs. Delivery is
// idempotent on the run id: the first write wins and later deliveries with the
// same id are acknowledged without touching the stored run.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/agentops/internal/metrics"
	"github.com/kiranshivaraju/agentops/internal/store"
	"github.com/kiranshivaraju/agentops/pkg/models"
)

// ErrAgentNotFound is returned when the reported agent does not exist in the
// ingesting organization. Nothing is persisted in that case.
var ErrAgentNotFound = fmt.Errorf("agent %w", store.ErrNotFound)

const (
	MessageAccepted  = "Run accepted for processing"
	MessageDuplicate = "Run already ingested"
)

// timestampLayout matches the millisecond UTC form used by reporting clients.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

var emptyDocument = json.RawMessage(`{}`)

// RunReport is a run as submitted by an agent runtime. Shape and enum
// validation happen before the report reaches the pipeline.
type RunReport struct {
	RunID             string
	AgentID           string
	Status            string
	InputData         json.RawMessage
	OutputData        json.RawMessage
	StartTime         string
	EndTime           string
	TokenUsage        *models.TokenUsage
	ExternalReference *string
	Events            []EventReport
}

// EventReport is one event embedded in a RunReport.
type EventReport struct {
	EventType string
	Timestamp string
	Payload   json.RawMessage
}

// Ack is the pipeline's answer to a report. Run is nil for duplicates.
type Ack struct {
	ID        string         `json:"id"`
	Status    string         `json:"status"`
	Message   string         `json:"message"`
	Run       *models.Run    `json:"data,omitempty"`
	Events    []models.Event `json:"-"`
	Duplicate bool           `json:"-"`
}

// Pipeline validates agent ownership, derives latency and cost, and stores
// runs with their events.
type Pipeline struct {
	store   store.Store
	pricing Pricing
	now     func() time.Time
}

type Option func(*Pipeline)

// WithPricing replaces the model pricing table.
func WithPricing(p Pricing) Option {
	return func(pl *Pipeline) {
		pl.pricing = p
	}
}

// WithClock replaces the time source used for defaulted start times.
func WithClock(now func() time.Time) Option {
	return func(pl *Pipeline) {
		pl.now = now
	}
}

// NewPipeline creates a new ingestion Pipeline.
func NewPipeline(s store.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:   s,
		pricing: DefaultPricing,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest stores report for orgID. orgID comes from the authenticated caller and
// is trusted as-is.
func (p *Pipeline) Ingest(ctx context.Context, orgID string, report RunReport) (*Ack, error) {
	agent, err := p.store.GetAgent(ctx, report.AgentID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && agent.OrgID != orgID) {
		return nil, ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get agent: %w", err)
	}

	runID := report.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	if _, err := p.store.GetRun(ctx, runID); err == nil {
		return p.duplicate(orgID, runID), nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("get run: %w", err)
	}

	run := p.buildRun(orgID, runID, report)

	events := make([]models.Event, 0, len(report.Events))
	for _, e := range report.Events {
		payload := e.Payload
		if len(payload) == 0 {
			payload = emptyDocument
		}
		events = append(events, models.Event{
			RunID:     runID,
			OrgID:     orgID,
			EventType: e.EventType,
			Timestamp: e.Timestamp,
			Payload:   payload,
		})
	}

	stored, created, err := p.store.CreateRun(ctx, run, events)
	if errors.Is(err, store.ErrDuplicateKey) {
		// Lost the race against a concurrent delivery of the same run.
		return p.duplicate(orgID, runID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	visible := make([]models.Event, 0, len(created))
	for _, e := range created {
		if e.OrgID == orgID {
			visible = append(visible, e)
		}
	}

	metrics.RunsIngested.WithLabelValues(stored.Status).Inc()
	metrics.EventsIngested.Add(float64(len(created)))
	if stored.CostUSD != nil {
		metrics.IngestedCostUSD.Add(*stored.CostUSD)
	}
	slog.Info("run ingested",
		"org_id", orgID,
		"run_id", stored.ID,
		"agent_id", stored.AgentID,
		"status", stored.Status,
		"events", len(created),
	)

	return &Ack{
		ID:      stored.ID,
		Status:  models.RunStatusQueued,
		Message: MessageAccepted,
		Run:     stored,
		Events:  visible,
	}, nil
}

func (p *Pipeline) duplicate(orgID, runID string) *Ack {
	metrics.RunsDuplicate.Inc()
	slog.Info("duplicate run delivery ignored", "org_id", orgID, "run_id", runID)
	return &Ack{
		ID:        runID,
		Status:    models.RunStatusQueued,
		Message:   MessageDuplicate,
		Duplicate: true,
	}
}

func (p *Pipeline) buildRun(orgID, runID string, report RunReport) *models.Run {
	status := report.Status
	if status == "" {
		status = models.RunStatusQueued
	}

	input := report.InputData
	if len(input) == 0 {
		input = emptyDocument
	}

	startTime := report.StartTime
	if startTime == "" {
		startTime = p.now().UTC().Format(timestampLayout)
	}

	var endTime *string
	if report.EndTime != "" {
		v := report.EndTime
		endTime = &v
	}

	var usage *models.TokenUsage
	if report.TokenUsage != nil {
		u := *report.TokenUsage
		usage = &u
	}

	return &models.Run{
		ID:                runID,
		OrgID:             orgID,
		AgentID:           report.AgentID,
		Status:            status,
		InputData:         input,
		OutputData:        report.OutputData,
		StartTime:         startTime,
		EndTime:           endTime,
		LatencyMs:         latencyMs(startTime, endTime),
		TokenUsage:        usage,
		CostUSD:           p.pricing.Cost(usage),
		ExternalReference: report.ExternalReference,
	}
}

// latencyMs returns end minus start in milliseconds, or nil when either
// timestamp is missing or unparseable.
func latencyMs(start string, end *string) *int64 {
	if end == nil {
		return nil
	}
	s, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return nil
	}
	e, err := time.Parse(time.RFC3339, *end)
	if err != nil {
		return nil
	}
	ms := e.Sub(s).Milliseconds()
	return &ms
}
