package queue

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"dinein-order-services/internal/settlement"

	"go.uber.org/zap"
)

const (
	JobTableRelease = "table.release"
	dedupeTTL       = 72 * time.Hour
)

// TableJob asks the table component to free the table held by an order.
type TableJob struct {
	Kind      string `json:"kind"`
	EventID   string `json:"eventId"`
	OrderID   int64  `json:"orderId"`
	Reason    string `json:"reason"`
	CreatedAt string `json:"createdAt"`
	Attempt   int    `json:"attempt"`
}

type Deduper interface {
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Translator turns settlement events into table jobs. Events are
// deduplicated by id, so a redelivered message never frees a table twice.
type Translator struct {
	jobs   jsonPublisher
	dedupe Deduper
	logger *zap.Logger
	now    func() time.Time
}

func NewTranslator(jobs *Client, dedupe Deduper, logger *zap.Logger) *Translator {
	return newTranslator(jobs, dedupe, logger)
}

func newTranslator(jobs jsonPublisher, dedupe Deduper, logger *zap.Logger) *Translator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Translator{jobs: jobs, dedupe: dedupe, logger: logger, now: time.Now}
}

// TranslateEvent returns the jobs an event produces. Unknown or unrelated
// events produce none.
func TranslateEvent(event settlement.Event, now time.Time) []TableJob {
	var reason string
	switch event.Type {
	case settlement.EventOrderCompleted:
		reason = "completed"
	case settlement.EventOrderCancelled:
		reason = "cancelled"
	default:
		return nil
	}
	if event.OrderID <= 0 {
		return nil
	}
	return []TableJob{{
		Kind:      JobTableRelease,
		EventID:   event.ID,
		OrderID:   event.OrderID,
		Reason:    reason,
		CreatedAt: now.UTC().Format(time.RFC3339),
		Attempt:   1,
	}}
}

// Handle is a HandlerFunc for the events queue.
func (t *Translator) Handle(ctx context.Context, body []byte) error {
	var event settlement.Event
	if err := json.Unmarshal(body, &event); err != nil {
		// A malformed body will never parse; drop it rather than retry.
		t.logger.Warn("dropping malformed settlement event", zap.Error(err))
		return nil
	}
	jobs := TranslateEvent(event, t.now())
	if len(jobs) == 0 {
		return nil
	}

	eventID := strings.TrimSpace(event.ID)
	if t.dedupe != nil && eventID != "" {
		fresh, err := t.dedupe.Reserve(ctx, "event:"+eventID, dedupeTTL)
		if err != nil {
			return err
		}
		if !fresh {
			t.logger.Debug("duplicate settlement event skipped", zap.String("eventId", eventID))
			return nil
		}
	}

	for _, job := range jobs {
		if err := t.jobs.PublishJSON(ctx, TableJobsExchange, TableJobsRK, job); err != nil {
			if t.dedupe != nil && eventID != "" {
				_ = t.dedupe.Release(ctx, "event:"+eventID)
			}
			return err
		}
	}
	t.logger.Info("table release queued", zap.Int64("orderId", event.OrderID), zap.String("eventType", event.Type))
	return nil
}
