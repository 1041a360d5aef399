// Package notify announces settlements after they are committed. Delivery is
// best effort: a failed notification never undoes a settlement batch.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/tinoosan/firmledger/internal/ledger"
)

// Notifier is told about the settlements one processing run created.
type Notifier interface {
	SettlementsCreated(ctx context.Context, p ledger.Period, created []ledger.Settlement) error
}

// SettlementEvent is the message published for each created settlement.
type SettlementEvent struct {
	SettlementID string    `json:"settlement_id"`
	PartnerID    string    `json:"partner_id"`
	Month        int       `json:"month"`
	Year         int       `json:"year"`
	Expected     string    `json:"expected_amount"`
	Actual       string    `json:"actual_amount"`
	Settlement   string    `json:"settlement_amount"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewSettlementEvent flattens s into its wire form.
func NewSettlementEvent(s ledger.Settlement) SettlementEvent {
	return SettlementEvent{
		SettlementID: s.ID.String(),
		PartnerID:    s.PartnerID.String(),
		Month:        s.Period.Month,
		Year:         s.Period.Year,
		Expected:     ledger.FormatAmount(s.Expected),
		Actual:       ledger.FormatAmount(s.Actual),
		Settlement:   ledger.FormatAmount(s.Amount),
		Status:       string(s.Status),
		CreatedAt:    s.CreatedAt,
	}
}

// LogNotifier writes one structured log line per settlement.
type LogNotifier struct {
	Log *slog.Logger
}

func (n LogNotifier) SettlementsCreated(ctx context.Context, p ledger.Period, created []ledger.Settlement) error {
	l := n.Log
	if l == nil {
		l = slog.Default()
	}
	for _, s := range created {
		ev := NewSettlementEvent(s)
		l.InfoContext(ctx, "settlement created",
			"period", p.String(),
			"settlement_id", ev.SettlementID,
			"partner_id", ev.PartnerID,
			"settlement_amount", ev.Settlement,
		)
	}
	return nil
}

// Nop discards notifications.
type Nop struct{}

func (Nop) SettlementsCreated(context.Context, ledger.Period, []ledger.Settlement) error { return nil }
