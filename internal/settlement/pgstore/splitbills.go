package pgstore

import (
	"context"
	"fmt"
	"time"

	"dinein-order-services/internal/settlement"
	"dinein-order-services/internal/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const splitBillColumns = `id, order_id, amount, tax_amount, cgst_amount, sgst_amount, total, status, created_at, settled_at`

func scanSplitBill(row pgx.Row) (settlement.SplitBill, error) {
	var (
		bill                    settlement.SplitBill
		amount, tax, cgst, sgst pgtype.Numeric
		total                   pgtype.Numeric
		status                  int16
		settledAt               pgtype.Timestamptz
	)
	if err := row.Scan(&bill.ID, &bill.OrderID, &amount, &tax, &cgst, &sgst, &total, &status, &bill.CreatedAt, &settledAt); err != nil {
		return settlement.SplitBill{}, mapNoRows(err)
	}
	bill.Amount = utils.NumericToDecimal(amount)
	bill.TaxAmount = utils.NumericToDecimal(tax)
	bill.CGSTAmount = utils.NumericToDecimal(cgst)
	bill.SGSTAmount = utils.NumericToDecimal(sgst)
	bill.Total = utils.NumericToDecimal(total)
	bill.Status = settlement.SplitBillStatus(status)
	bill.SettledAt = utils.TimestamptzPtr(settledAt)
	return bill, nil
}

func (s *Store) InsertSplitBill(ctx context.Context, bill settlement.SplitBill) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		insert into split_bills (order_id, amount, tax_amount, cgst_amount, sgst_amount, total, status, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning id
	`,
		bill.OrderID,
		utils.DecimalToNumeric(bill.Amount),
		utils.DecimalToNumeric(bill.TaxAmount),
		utils.DecimalToNumeric(bill.CGSTAmount),
		utils.DecimalToNumeric(bill.SGSTAmount),
		utils.DecimalToNumeric(bill.Total),
		int16(bill.Status),
		bill.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	for _, line := range bill.Lines {
		if _, err := s.db.Exec(ctx, `
			insert into split_bill_items (split_bill_id, order_item_id, quantity)
			values ($1, $2, $3)
		`, id, line.OrderItemID, line.Quantity); err != nil {
			return 0, err
		}
	}
	return id, nil
}

func (s *Store) splitBillLines(ctx context.Context, splitBillID int64) ([]settlement.SplitBillLine, error) {
	rows, err := s.db.Query(ctx, `
		select order_item_id, quantity
		from split_bill_items
		where split_bill_id = $1
		order by order_item_id
	`, splitBillID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]settlement.SplitBillLine, 0)
	for rows.Next() {
		var line settlement.SplitBillLine
		if err := rows.Scan(&line.OrderItemID, &line.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (s *Store) LockSplitBill(ctx context.Context, splitBillID int64) (settlement.SplitBill, error) {
	bill, err := scanSplitBill(s.db.QueryRow(ctx, `select `+splitBillColumns+` from split_bills where id = $1 for update`, splitBillID))
	if err != nil {
		return settlement.SplitBill{}, err
	}
	bill.Lines, err = s.splitBillLines(ctx, splitBillID)
	if err != nil {
		return settlement.SplitBill{}, err
	}
	return bill, nil
}

func (s *Store) SplitBillOrderID(ctx context.Context, splitBillID int64) (int64, error) {
	var orderID int64
	if err := s.db.QueryRow(ctx, `select order_id from split_bills where id = $1`, splitBillID).Scan(&orderID); err != nil {
		return 0, mapNoRows(err)
	}
	return orderID, nil
}

func (s *Store) ListSplitBills(ctx context.Context, orderID int64) ([]settlement.SplitBill, error) {
	rows, err := s.db.Query(ctx, `select `+splitBillColumns+` from split_bills where order_id = $1 order by id`, orderID)
	if err != nil {
		return nil, err
	}
	bills := make([]settlement.SplitBill, 0)
	index := make(map[int64]int)
	for rows.Next() {
		bill, err := scanSplitBill(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[bill.ID] = len(bills)
		bills = append(bills, bill)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(bills) == 0 {
		return bills, nil
	}

	lineRows, err := s.db.Query(ctx, `
		select sbi.split_bill_id, sbi.order_item_id, sbi.quantity
		from split_bill_items sbi
		join split_bills sb on sb.id = sbi.split_bill_id
		where sb.order_id = $1
		order by sbi.split_bill_id, sbi.order_item_id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer lineRows.Close()

	for lineRows.Next() {
		var (
			billID int64
			line   settlement.SplitBillLine
		)
		if err := lineRows.Scan(&billID, &line.OrderItemID, &line.Quantity); err != nil {
			return nil, err
		}
		if i, ok := index[billID]; ok {
			bills[i].Lines = append(bills[i].Lines, line)
		}
	}
	return bills, lineRows.Err()
}

func (s *Store) UpdateSplitBillStatus(ctx context.Context, splitBillID int64, status settlement.SplitBillStatus, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
		update split_bills
		set status = $1,
			settled_at = case when $1 = 1 then $2 else settled_at end,
			voided_at = case when $1 = 2 then $2 else voided_at end
		where id = $3 and status = 0
	`, int16(status), at, splitBillID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("split bill %d is no longer active", splitBillID)
	}
	return nil
}
