package fifo

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// EVENTS - Tagged union over transactions, bonuses and splits
// =============================================================================

// EventKind is both the event tag and the same-day precedence: on equal
// dates transactions come first, then bonuses, then splits.
type EventKind int

const (
	EventTxn EventKind = iota
	EventBonus
	EventSplit
)

func (k EventKind) String() string {
	switch k {
	case EventTxn:
		return "transaction"
	case EventBonus:
		return "bonus"
	case EventSplit:
		return "split"
	default:
		return "unknown"
	}
}

// Event is one of TxnEvent, BonusEvent or SplitEvent.
type Event interface {
	EventDate() Date
	Kind() EventKind
	// seq is the position within the source collection.
	seq() int
}

// TxnEvent is a buy/sell execution. Class is computed once at merge time.
type TxnEvent struct {
	Date      Date
	TypeCode  string
	Class     TxnKind
	Qty       decimal.Decimal // magnitude
	NetRate   decimal.Decimal
	NetAmount decimal.Decimal
	index     int
}

func (e TxnEvent) EventDate() Date { return e.Date }
func (e TxnEvent) Kind() EventKind { return EventTxn }
func (e TxnEvent) seq() int        { return e.index }

// Price is the per-share execution price: the net rate when present,
// otherwise net amount over quantity, otherwise zero.
func (e TxnEvent) Price() decimal.Decimal {
	if !e.NetRate.IsZero() {
		return e.NetRate
	}
	if !e.NetAmount.IsZero() && !e.Qty.IsZero() {
		return e.NetAmount.Div(e.Qty)
	}
	return decimal.Zero
}

type BonusEvent struct {
	Date  Date
	Qty   decimal.Decimal
	index int
}

func (e BonusEvent) EventDate() Date { return e.Date }
func (e BonusEvent) Kind() EventKind { return EventBonus }
func (e BonusEvent) seq() int        { return e.index }

type SplitEvent struct {
	Date   Date
	Ratio1 decimal.Decimal
	Ratio2 decimal.Decimal
	index  int
}

func (e SplitEvent) EventDate() Date { return e.Date }
func (e SplitEvent) Kind() EventKind { return EventSplit }
func (e SplitEvent) seq() int        { return e.index }

// =============================================================================
// EVENT MERGER
// =============================================================================

// MergeEvents turns the three input collections into one sequence sorted by
// date. Ties are broken by source (transactions, bonuses, splits) and then
// by input order, so the result is fully deterministic.
//
// A missing or unparseable date on any row fails the whole merge with an
// *InvalidDateError.
func MergeEvents(in Input) ([]Event, error) {
	events := make([]Event, 0, len(in.Transactions)+len(in.Bonuses)+len(in.Splits))

	for i, t := range in.Transactions {
		d, err := eventDate(EventTxn, i, t.Date)
		if err != nil {
			return nil, err
		}
		events = append(events, TxnEvent{
			Date:      d,
			TypeCode:  t.TypeCode,
			Class:     Classify(t.TypeCode),
			Qty:       t.Qty.Abs(),
			NetRate:   t.NetRate,
			NetAmount: t.NetAmount,
			index:     i,
		})
	}

	for i, b := range in.Bonuses {
		d, err := eventDate(EventBonus, i, b.ExDate)
		if err != nil {
			return nil, err
		}
		events = append(events, BonusEvent{Date: d, Qty: b.BonusShare, index: i})
	}

	for i, s := range in.Splits {
		d, err := eventDate(EventSplit, i, s.IssueDate)
		if err != nil {
			return nil, err
		}
		events = append(events, SplitEvent{Date: d, Ratio1: s.Ratio1, Ratio2: s.Ratio2, index: i})
	}

	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.EventDate().Equal(b.EventDate()) {
			return a.EventDate().Before(b.EventDate())
		}
		if a.Kind() != b.Kind() {
			return a.Kind() < b.Kind()
		}
		return a.seq() < b.seq()
	})

	return events, nil
}

func eventDate(source EventKind, index int, raw string) (Date, error) {
	d, err := NormalizeDate(raw)
	if err != nil || d.IsZero() {
		return Date{}, &InvalidDateError{Source: source, Index: index, Raw: raw, Err: err}
	}
	return d, nil
}
