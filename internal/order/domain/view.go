package domain

// View is the read-side projection the presentation layer picks a screen
// from. It is always re-derived from stored state, never cached.
type View string

const (
	// ViewPaymentRedirect: payment was never attempted; the UI must
	// auto-trigger a redirect to the gateway.
	ViewPaymentRedirect View = "payment-redirect"
	ViewPendingOrFailed View = "pending-or-failed"
	ViewSuccess         View = "success"
)

type ViewState struct {
	View View
	// SubMode distinguishes pending from failed inside ViewPendingOrFailed.
	// Empty for the other views and for the fallthrough case.
	SubMode PaymentStatus
}

// DeriveView maps the (method, paymentStatus, orderStatus, hasTransactionID)
// tuple to a view. Total and side-effect free: every combination yields one
// of the three views, nothing panics, rules apply in priority order.
func DeriveView(method PaymentMethod, pay PaymentStatus, status Status, hasTransactionID bool) ViewState {
	if method.Offline() {
		return ViewState{View: ViewSuccess}
	}
	if pay == PaymentNotInitiated && status == StatusPending && !hasTransactionID {
		return ViewState{View: ViewPaymentRedirect}
	}
	if (pay == PaymentPending || pay == PaymentFailed) && status == StatusPending && hasTransactionID {
		return ViewState{View: ViewPendingOrFailed, SubMode: pay}
	}
	if pay == PaymentPaid && status == StatusConfirmed {
		return ViewState{View: ViewSuccess}
	}
	return ViewState{View: ViewPendingOrFailed}
}
