package pgstore

import (
	"context"

	"dinein-order-services/internal/settlement"
)

type AuditLog struct {
	db dbtx
}

func NewAuditLog(db dbtx) *AuditLog {
	return &AuditLog{db: db}
}

func (a *AuditLog) AppendAudit(ctx context.Context, entry settlement.AuditEntry) error {
	payload := entry.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	_, err := a.db.Exec(ctx, `
		insert into payment_audit_log (correlation_id, order_id, payment_id, action, actor_id, reason, payload, created_at)
		values ($1::text::uuid, $2, $3, $4, $5, $6, $7, $8)
	`, entry.CorrelationID, entry.OrderID, entry.PaymentID, entry.Action, nilIfZero(entry.ActorID), nilIfEmpty(entry.Reason), payload, entry.At)
	return err
}
