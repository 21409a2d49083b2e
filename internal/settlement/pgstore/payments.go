package pgstore

import (
	"context"
	"fmt"

	"dinein-order-services/internal/settlement"
	"dinein-order-services/internal/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const paymentColumns = `
	id, order_id, method, amount, tip_amount, disc_amount, gst_amount, cgst_amount, sgst_amount,
	roundoff_adjustment_amt, reference_number, card_type, card_last4, notes, status, status_reason,
	created_by, created_at, decided_by, decided_at
`

func scanPayment(row pgx.Row) (settlement.Payment, error) {
	var (
		p                              settlement.Payment
		amount, tip, disc              pgtype.Numeric
		gst, cgst, sgst, roundoff      pgtype.Numeric
		reference, cardType, cardLast4 pgtype.Text
		notes, statusReason            pgtype.Text
		status                         int16
		createdBy, decidedBy           pgtype.Int8
		decidedAt                      pgtype.Timestamptz
	)
	if err := row.Scan(&p.ID, &p.OrderID, &p.Method, &amount, &tip, &disc, &gst, &cgst, &sgst,
		&roundoff, &reference, &cardType, &cardLast4, &notes, &status, &statusReason,
		&createdBy, &p.CreatedAt, &decidedBy, &decidedAt); err != nil {
		return settlement.Payment{}, mapNoRows(err)
	}
	p.Amount = utils.NumericToDecimal(amount)
	p.TipAmount = utils.NumericToDecimal(tip)
	p.DiscAmount = utils.NumericToDecimal(disc)
	p.GSTAmount = utils.NumericToDecimal(gst)
	p.CGSTAmount = utils.NumericToDecimal(cgst)
	p.SGSTAmount = utils.NumericToDecimal(sgst)
	p.RoundoffAdjustmentAmt = utils.NumericToDecimal(roundoff)
	p.ReferenceNumber = textValue(reference)
	p.CardType = textValue(cardType)
	p.CardLast4 = textValue(cardLast4)
	p.Notes = textValue(notes)
	p.Status = settlement.PaymentStatus(status)
	p.StatusReason = textValue(statusReason)
	if createdBy.Valid {
		p.CreatedBy = createdBy.Int64
	}
	p.DecidedBy = utils.Int8Ptr(decidedBy)
	p.DecidedAt = utils.TimestamptzPtr(decidedAt)
	return p, nil
}

func nilIfZero(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

// InsertPayment returns the status the row was stored with. The column
// default may differ from what the caller asked for; the caller reconciles.
func (s *Store) InsertPayment(ctx context.Context, p settlement.Payment) (int64, settlement.PaymentStatus, error) {
	var (
		id     int64
		status int16
	)
	err := s.db.QueryRow(ctx, `
		insert into payments (
			order_id, method, amount, tip_amount, disc_amount, gst_amount, cgst_amount, sgst_amount,
			roundoff_adjustment_amt, reference_number, card_type, card_last4, notes, status, created_by, created_at
		) values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		returning id, status
	`,
		p.OrderID,
		p.Method,
		utils.DecimalToNumeric(p.Amount),
		utils.DecimalToNumeric(p.TipAmount),
		utils.DecimalToNumeric(p.DiscAmount),
		utils.DecimalToNumeric(p.GSTAmount),
		utils.DecimalToNumeric(p.CGSTAmount),
		utils.DecimalToNumeric(p.SGSTAmount),
		utils.DecimalToNumeric(p.RoundoffAdjustmentAmt),
		nilIfEmpty(p.ReferenceNumber),
		nilIfEmpty(p.CardType),
		nilIfEmpty(p.CardLast4),
		nilIfEmpty(p.Notes),
		int16(p.Status),
		nilIfZero(p.CreatedBy),
		p.CreatedAt,
	).Scan(&id, &status)
	if err != nil {
		return 0, 0, err
	}
	return id, settlement.PaymentStatus(status), nil
}

func (s *Store) PaymentOrderID(ctx context.Context, paymentID int64) (int64, error) {
	var orderID int64
	if err := s.db.QueryRow(ctx, `select order_id from payments where id = $1`, paymentID).Scan(&orderID); err != nil {
		return 0, mapNoRows(err)
	}
	return orderID, nil
}

func (s *Store) GetPayment(ctx context.Context, paymentID int64) (settlement.Payment, error) {
	return scanPayment(s.db.QueryRow(ctx, `select `+paymentColumns+` from payments where id = $1`, paymentID))
}

func (s *Store) LockPayment(ctx context.Context, paymentID int64) (settlement.Payment, error) {
	return scanPayment(s.db.QueryRow(ctx, `select `+paymentColumns+` from payments where id = $1 for update`, paymentID))
}

func (s *Store) ListPayments(ctx context.Context, orderID int64) ([]settlement.Payment, error) {
	rows, err := s.db.Query(ctx, `select `+paymentColumns+` from payments where order_id = $1 order by id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]settlement.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// UpdatePaymentStatus is a compare-and-set on the status column so a stale
// caller never overwrites a decision made in between.
func (s *Store) UpdatePaymentStatus(ctx context.Context, update settlement.PaymentStatusUpdate) error {
	tag, err := s.db.Exec(ctx, `
		update payments
		set status = $1, status_reason = coalesce($2, status_reason), decided_by = $3, decided_at = $4
		where id = $5 and status = $6
	`, int16(update.To), nilIfEmpty(update.Reason), nilIfZero(update.ActorID), update.At, update.PaymentID, int16(update.From))
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("payment %d is no longer %s", update.PaymentID, update.From)
	}
	return nil
}
