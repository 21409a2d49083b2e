package handlers

import (
	"context"

	"dinein-order-services/internal/config"
	"dinein-order-services/internal/settlement"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Settlement is the slice of *settlement.Service the POS routes call.
type Settlement interface {
	ProcessPayment(ctx context.Context, req settlement.ProcessPaymentRequest) (*settlement.ProcessPaymentResult, error)
	ApprovePayment(ctx context.Context, paymentID int64, actorID int64, note string) (*settlement.PaymentTransitionResult, error)
	RejectPayment(ctx context.Context, paymentID int64, actorID int64, reason string) (*settlement.PaymentTransitionResult, error)
	VoidPayment(ctx context.Context, paymentID int64, actorID int64, reason string) (*settlement.PaymentTransitionResult, error)
	CancelOrder(ctx context.Context, orderID int64, actorID int64, reason string) (*settlement.CancelResult, error)
	AdvanceOrderStatus(ctx context.Context, orderID int64, to settlement.OrderStatus, actorID int64) (*settlement.Order, error)
	RecalculateOrder(ctx context.Context, orderID int64) (*settlement.RecalculateResult, error)
	GetOrderView(ctx context.Context, orderID int64) (*settlement.OrderView, error)
	AvailableItems(ctx context.Context, orderID int64) ([]settlement.ItemAvailability, error)
	CreateSplitBill(ctx context.Context, orderID int64, lines []settlement.SplitBillLine, actorID int64) (*settlement.SplitBill, error)
	SettleSplitBill(ctx context.Context, splitBillID int64, actorID int64) (*settlement.SplitBill, error)
	VoidSplitBill(ctx context.Context, splitBillID int64, actorID int64) (*settlement.SplitBill, error)
}

type Handler struct {
	Settlement Settlement
	Settings   settlement.SettingsProvider
	Logger     *zap.Logger
	Config     config.Config

	validate *validator.Validate
}

func New(svc Settlement, settings settlement.SettingsProvider, logger *zap.Logger, cfg config.Config) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Settlement: svc,
		Settings:   settings,
		Logger:     logger,
		Config:     cfg,
		validate:   newValidator(),
	}
}
