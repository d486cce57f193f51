package fifo

import "strings"

// TxnKind is the closed classification of a transaction type code.
type TxnKind int

const (
	TxnOther TxnKind = iota
	TxnBuy
	TxnSell
)

func (k TxnKind) String() string {
	switch k {
	case TxnBuy:
		return "buy"
	case TxnSell:
		return "sell"
	default:
		return "other"
	}
}

// Classify maps a broker type code to a TxnKind, case-insensitively.
//
//	BUY:  "BY-*", "SQB", "OPI"
//	SELL: "SL+*", "SQS", "OPO", "NF-"
//
// Anything else is TxnOther and is ignored by the ledger.
func Classify(typeCode string) TxnKind {
	code := strings.ToUpper(strings.TrimSpace(typeCode))
	switch {
	case strings.HasPrefix(code, "BY-"), code == "SQB", code == "OPI":
		return TxnBuy
	case strings.HasPrefix(code, "SL+"), code == "SQS", code == "OPO", code == "NF-":
		return TxnSell
	default:
		return TxnOther
	}
}
