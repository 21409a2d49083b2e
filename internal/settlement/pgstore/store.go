package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dinein-order-services/internal/settlement"
	"dinein-order-services/internal/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Runner hands out a Store bound to one read-committed transaction. Order
// rows are locked explicitly with select ... for update.
type Runner struct {
	Pool *pgxpool.Pool
}

func NewRunner(pool *pgxpool.Pool) *Runner {
	return &Runner{Pool: pool}
}

func (r *Runner) InTx(ctx context.Context, fn func(ctx context.Context, store settlement.Store) error) error {
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &Store{db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type Store struct {
	db dbtx
}

var _ settlement.Store = (*Store)(nil)

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return settlement.ErrNotFound
	}
	return err
}

func nilIfEmpty(value string) any {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return trimmed
}

func textValue(v pgtype.Text) string {
	if v.Valid {
		return v.String
	}
	return ""
}

const orderColumns = `
	id, order_number, status, subtotal, tax_amount, cgst_amount, sgst_amount,
	discount_amount, tip_amount, total_amount, roundoff_adjustment_amt,
	completed_at, cancelled_at, updated_at
`

func scanOrder(row pgx.Row) (settlement.Order, error) {
	var (
		order                    settlement.Order
		status                   int16
		subtotal, tax, cgst      pgtype.Numeric
		sgst, discount, tip      pgtype.Numeric
		total, roundoff          pgtype.Numeric
		completedAt, cancelledAt pgtype.Timestamptz
	)
	if err := row.Scan(&order.ID, &order.OrderNumber, &status, &subtotal, &tax, &cgst, &sgst,
		&discount, &tip, &total, &roundoff, &completedAt, &cancelledAt, &order.UpdatedAt); err != nil {
		return settlement.Order{}, mapNoRows(err)
	}
	order.Status = settlement.OrderStatus(status)
	order.Subtotal = utils.NumericToDecimal(subtotal)
	order.TaxAmount = utils.NumericToDecimal(tax)
	order.CGSTAmount = utils.NumericToDecimal(cgst)
	order.SGSTAmount = utils.NumericToDecimal(sgst)
	order.DiscountAmount = utils.NumericToDecimal(discount)
	order.TipAmount = utils.NumericToDecimal(tip)
	order.TotalAmount = utils.NumericToDecimal(total)
	order.RoundoffAdjustmentAmt = utils.NumericToDecimal(roundoff)
	order.CompletedAt = utils.TimestamptzPtr(completedAt)
	order.CancelledAt = utils.TimestamptzPtr(cancelledAt)
	return order, nil
}

func (s *Store) LockOrder(ctx context.Context, orderID int64) (settlement.Order, error) {
	return scanOrder(s.db.QueryRow(ctx, `select `+orderColumns+` from orders where id = $1 for update`, orderID))
}

func (s *Store) GetOrder(ctx context.Context, orderID int64) (settlement.Order, error) {
	return scanOrder(s.db.QueryRow(ctx, `select `+orderColumns+` from orders where id = $1`, orderID))
}

func (s *Store) ListOrderItems(ctx context.Context, orderID int64) ([]settlement.OrderItem, error) {
	rows, err := s.db.Query(ctx, `
		select id, order_id, name, unit_price, quantity, is_cancelled, fired_at
		from order_items
		where order_id = $1
		order by id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]settlement.OrderItem, 0)
	for rows.Next() {
		var (
			item      settlement.OrderItem
			unitPrice pgtype.Numeric
			firedAt   pgtype.Timestamptz
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.Name, &unitPrice, &item.Quantity, &item.IsCancelled, &firedAt); err != nil {
			return nil, err
		}
		item.UnitPrice = utils.NumericToDecimal(unitPrice)
		item.FiredAt = utils.TimestamptzPtr(firedAt)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) UpdateOrderTotals(ctx context.Context, orderID int64, totals settlement.OrderTotals) error {
	tag, err := s.db.Exec(ctx, `
		update orders
		set subtotal = $1, discount_amount = $2, tax_amount = $3, cgst_amount = $4, sgst_amount = $5,
			tip_amount = $6, total_amount = $7, roundoff_adjustment_amt = $8, updated_at = now()
		where id = $9
	`,
		utils.DecimalToNumeric(totals.Subtotal),
		utils.DecimalToNumeric(totals.DiscountAmount),
		utils.DecimalToNumeric(totals.TaxAmount),
		utils.DecimalToNumeric(totals.CGSTAmount),
		utils.DecimalToNumeric(totals.SGSTAmount),
		utils.DecimalToNumeric(totals.TipAmount),
		utils.DecimalToNumeric(totals.TotalAmount),
		utils.DecimalToNumeric(totals.RoundoffAdjustmentAmt),
		orderID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("order %d totals not updated", orderID)
	}
	return nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status settlement.OrderStatus, completedAt *time.Time, cancelledAt *time.Time) error {
	tag, err := s.db.Exec(ctx, `
		update orders
		set status = $1, completed_at = $2, cancelled_at = coalesce($3, cancelled_at), updated_at = now()
		where id = $4
	`, int16(status), completedAt, cancelledAt, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("order %d status not updated", orderID)
	}
	return nil
}

func (s *Store) CancelUnfiredItems(ctx context.Context, orderID int64) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		update order_items
		set is_cancelled = true
		where order_id = $1 and fired_at is null and not is_cancelled
	`, orderID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) GetPaymentMethod(ctx context.Context, code string) (settlement.PaymentMethod, error) {
	var m settlement.PaymentMethod
	err := s.db.QueryRow(ctx, `
		select code, name, requires_card_info, rounds_to_whole_unit, is_complementary, is_active
		from payment_methods
		where upper(code) = upper($1)
	`, code).Scan(&m.Code, &m.Name, &m.RequiresCardInfo, &m.RoundsToWholeUnit, &m.IsComplementary, &m.IsActive)
	if err != nil {
		return settlement.PaymentMethod{}, mapNoRows(err)
	}
	return m, nil
}
