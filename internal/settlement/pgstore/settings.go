package pgstore

import (
	"context"
	"errors"

	"dinein-order-services/internal/settlement"
	"dinein-order-services/internal/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// SettingsReader reads restaurant_settings on every call so a policy change
// takes effect on the next operation. Defaults apply when the row is missing.
type SettingsReader struct {
	db       dbtx
	defaults settlement.RestaurantSettings
}

func NewSettingsReader(db dbtx, defaults settlement.RestaurantSettings) *SettingsReader {
	return &SettingsReader{db: db, defaults: defaults}
}

func (r *SettingsReader) Settings(ctx context.Context) (settlement.RestaurantSettings, error) {
	var (
		settings settlement.RestaurantSettings
		gst      pgtype.Numeric
		pinHash  pgtype.Text
	)
	err := r.db.QueryRow(ctx, `
		select default_gst_percentage, is_discount_approval_required, is_card_payment_approval_required, manager_pin_hash
		from restaurant_settings
		where id = 1
	`).Scan(&gst, &settings.IsDiscountApprovalRequired, &settings.IsCardPaymentApprovalRequired, &pinHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.defaults, nil
	}
	if err != nil {
		return settlement.RestaurantSettings{}, err
	}
	settings.DefaultGSTPercentage = utils.NumericToDecimal(gst)
	settings.ManagerPinHash = textValue(pinHash)
	return settings, nil
}
