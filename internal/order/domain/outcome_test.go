package domain

import (
	"testing"
	"time"
)

func TestOutcomeFromDescription_FailClosed(t *testing.T) {
	cases := []struct {
		desc string
		want PaymentOutcome
	}{
		{"Completed", OutcomePaid},
		{"COMPLETED", OutcomePaid},
		{"  completed  ", OutcomePaid},
		{"Reversed", OutcomeRefunded},
		{"Failed", OutcomeFailed},
		{"FAILED", OutcomeFailed},
		{"Invalid", OutcomeFailed},
		{"", OutcomeFailed},
		{"Pending", OutcomeFailed},
		{"something the gateway made up", OutcomeFailed},
	}
	for _, c := range cases {
		if got := OutcomeFromDescription(c.desc); got != c.want {
			t.Errorf("OutcomeFromDescription(%q) = %q, want %q", c.desc, got, c.want)
		}
	}
}

func TestOutcomeFromDescription_NeverPaidForUnrecognized(t *testing.T) {
	for _, desc := range []string{"complete", "completd", "success", "ok", "paid"} {
		if got := OutcomeFromDescription(desc); got == OutcomePaid {
			t.Errorf("OutcomeFromDescription(%q) = paid; unrecognized values must fail closed", desc)
		}
	}
}

func TestNewPaymentResult(t *testing.T) {
	now := time.Now()

	t.Run("Given paid outcome Then confirmation and timestamp set", func(t *testing.T) {
		r := NewPaymentResult(OutcomePaid, "track-1", "CONF-9", now)
		if r.TransactionID != "track-1" || r.ConfirmationCode != "CONF-9" {
			t.Errorf("unexpected result %+v", r)
		}
		if r.PaidAt == nil {
			t.Fatal("PaidAt not set for paid outcome")
		}
	})

	t.Run("Given failed outcome Then no confirmation and no timestamp", func(t *testing.T) {
		r := NewPaymentResult(OutcomeFailed, "track-1", "CONF-9", now)
		if r.ConfirmationCode != "" || r.PaidAt != nil {
			t.Errorf("failed outcome must not carry paid fields: %+v", r)
		}
	})
}
