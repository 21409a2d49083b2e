package settlement

// ApprovalReason says which rule decided a payment's initial status.
type ApprovalReason string

const (
	ReasonDiscountPolicy ApprovalReason = "discount_policy"
	ReasonCardPolicy     ApprovalReason = "card_policy"
	ReasonNoPolicy       ApprovalReason = "no_policy"
)

type ApprovalDecision struct {
	Status PaymentStatus
	Reason ApprovalReason
}

func (d ApprovalDecision) RequiresApproval() bool {
	return d.Status == PaymentPending
}

// DecideInitialStatus picks Pending or Approved for a new payment. The first
// matching rule wins: a discounted payment is governed by the discount policy
// alone, then card methods by the card policy, otherwise it is approved.
func DecideInitialStatus(p Payment, method PaymentMethod, settings RestaurantSettings) ApprovalDecision {
	if p.DiscAmount.IsPositive() {
		if settings.IsDiscountApprovalRequired {
			return ApprovalDecision{Status: PaymentPending, Reason: ReasonDiscountPolicy}
		}
		return ApprovalDecision{Status: PaymentApproved, Reason: ReasonDiscountPolicy}
	}
	if method.RequiresCardInfo && settings.IsCardPaymentApprovalRequired {
		return ApprovalDecision{Status: PaymentPending, Reason: ReasonCardPolicy}
	}
	return ApprovalDecision{Status: PaymentApproved, Reason: ReasonNoPolicy}
}
