/*
service.go - Holding ledgers on top of a Store

PURPOSE:
  Everything around the engine: loading raw rows for one account and
  security, cutting them off at an as-on date, running one engine per
  holding, and the cross-check totals and account summary built on it.

ONE ENGINE PER HOLDING:
  Every call builds a fresh fifo.Input and replays it. Nothing computed is
  kept between calls except the account summary cache, which is flushed
  on every write through the service.

FAILURE ISOLATION:
  In the account summary, a security whose rows cannot be replayed (bad
  dates) is logged and left out. Store failures abort the whole call.

SEE ALSO:
  - fifo/ledger.go: the engine
  - store.go: the persistence boundary
*/
package holdings

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/warp/holdings-engine/fifo"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultCacheTTL = 15 * time.Minute
	DefaultWorkers  = 8
)

// HoldingSummary is one line of the account-wide holdings view.
type HoldingSummary struct {
	StockName      string
	SecurityCode   string
	CurrentHolding decimal.Decimal
	HoldingValue   decimal.Decimal
	AvgPrice       decimal.Decimal
}

// Batch is a bulk load of raw rows.
type Batch struct {
	Transactions []TransactionRecord
	Bonuses      []BonusRecord
	Splits       []SplitRecord
}

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Store   Store
	Logger  *slog.Logger
	Workers int

	summaries *cache.Cache
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.Logger = l } }

// WithWorkers bounds how many holdings the account summary replays at once.
func WithWorkers(n int) Option { return func(s *Service) { s.Workers = n } }

func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) { s.summaries = cache.New(ttl, 2*ttl) }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		Store:     store,
		Logger:    slog.Default(),
		Workers:   DefaultWorkers,
		summaries: cache.New(DefaultCacheTTL, 2*DefaultCacheTTL),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Workers < 1 {
		s.Workers = 1
	}
	return s
}

// ParseAsOnDate parses an optional as-on filter. Empty means no filter.
func ParseAsOnDate(raw string) (fifo.Date, error) {
	d, err := fifo.NormalizeDate(raw)
	if err != nil {
		return fifo.Date{}, fmt.Errorf("%w: %v", ErrInvalidAsOnDate, err)
	}
	return d, nil
}

// =============================================================================
// SINGLE HOLDING
// =============================================================================

// Input loads the engine input for one holding. Transactions and bonuses
// dated after asOn are dropped; rows whose date cannot be read are kept so
// the replay rejects them. Splits are not cut off: a later split still
// restates history.
func (s *Service) Input(ctx context.Context, accountCode, securityCode string, asOn fifo.Date) (fifo.Input, error) {
	if err := requireFields("accountCode", accountCode, "securityCode", securityCode); err != nil {
		return fifo.Input{}, err
	}

	txns, err := s.Store.Transactions(ctx, accountCode, securityCode)
	if err != nil {
		return fifo.Input{}, fmt.Errorf("load transactions: %w", err)
	}
	bonuses, err := s.Store.Bonuses(ctx, accountCode, securityCode)
	if err != nil {
		return fifo.Input{}, fmt.Errorf("load bonuses: %w", err)
	}
	splits, err := s.Store.Splits(ctx, securityCode)
	if err != nil {
		return fifo.Input{}, fmt.Errorf("load splits: %w", err)
	}

	return buildInput(filterTransactions(txns, asOn), filterBonuses(bonuses, asOn), splits), nil
}

// History replays one holding and returns every ledger row.
func (s *Service) History(ctx context.Context, accountCode, securityCode string, asOn fifo.Date) ([]fifo.LedgerRow, error) {
	in, err := s.Input(ctx, accountCode, securityCode, asOn)
	if err != nil {
		return nil, err
	}
	return fifo.Replay(in)
}

// Card replays one holding in summary mode.
func (s *Service) Card(ctx context.Context, accountCode, securityCode string, asOn fifo.Date) (fifo.LedgerSummary, error) {
	in, err := s.Input(ctx, accountCode, securityCode, asOn)
	if err != nil {
		return fifo.LedgerSummary{}, err
	}
	return fifo.ReplaySummary(in)
}

// TotalBuyQty sums bought and bonus shares, independently of the ledger.
func (s *Service) TotalBuyQty(ctx context.Context, accountCode, securityCode string, asOn fifo.Date) (decimal.Decimal, error) {
	in, err := s.Input(ctx, accountCode, securityCode, asOn)
	if err != nil {
		return decimal.Zero, err
	}
	buy, _ := sumByClass(in.Transactions)
	for _, b := range in.Bonuses {
		buy = buy.Add(b.BonusShare)
	}
	return buy, nil
}

// TotalSellQty sums sold shares, independently of the ledger.
func (s *Service) TotalSellQty(ctx context.Context, accountCode, securityCode string, asOn fifo.Date) (decimal.Decimal, error) {
	in, err := s.Input(ctx, accountCode, securityCode, asOn)
	if err != nil {
		return decimal.Zero, err
	}
	_, sold := sumByClass(in.Transactions)
	return sold, nil
}

// =============================================================================
// ACCOUNT SUMMARY
// =============================================================================

// holdingGroup collects one security's rows within an account.
type holdingGroup struct {
	name         string
	securityCode string
	txns         []TransactionRecord
	bonuses      []BonusRecord
}

// Summary lists every security the account still holds, with its card
// values, sorted by name. Securities are grouped by normalized name.
// Holdings with a non-positive share count or value are left out.
func (s *Service) Summary(ctx context.Context, accountCode string, asOn fifo.Date) ([]HoldingSummary, error) {
	if err := requireFields("accountCode", accountCode); err != nil {
		return nil, err
	}

	key := accountCode + "|" + asOn.String()
	if cached, ok := s.summaries.Get(key); ok {
		return append([]HoldingSummary(nil), cached.([]HoldingSummary)...), nil
	}

	txns, err := s.Store.Transactions(ctx, accountCode, "")
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	bonuses, err := s.Store.Bonuses(ctx, accountCode, "")
	if err != nil {
		return nil, fmt.Errorf("load bonuses: %w", err)
	}

	groups := groupByName(filterTransactions(txns, asOn), filterBonuses(bonuses, asOn))

	// Aggregate cross-check first; only positive positions are replayed.
	var candidates []HoldingSummary
	var inputs []*holdingGroup
	for _, g := range groups {
		buy, sold := sumByClass(toRawTransactions(g.txns))
		bonus := decimal.Zero
		for _, b := range g.bonuses {
			bonus = bonus.Add(b.BonusShare)
		}
		current := buy.Sub(sold).Add(bonus)
		if !current.IsPositive() {
			continue
		}
		candidates = append(candidates, HoldingSummary{
			StockName:      g.name,
			SecurityCode:   g.securityCode,
			CurrentHolding: current,
		})
		inputs = append(inputs, g)
	}

	keep := make([]bool, len(candidates))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.Workers)
	for i := range candidates {
		i := i
		eg.Go(func() error {
			g := inputs[i]
			var splits []SplitRecord
			if g.securityCode != "" {
				var err error
				if splits, err = s.Store.Splits(egCtx, g.securityCode); err != nil {
					return fmt.Errorf("load splits for %s: %w", g.securityCode, err)
				}
			}
			card, err := fifo.ReplaySummary(buildInput(g.txns, g.bonuses, splits))
			if err != nil {
				s.Logger.Warn("Skipping holding that failed to replay",
					"account", accountCode,
					"stock", g.name,
					"error", err)
				return nil
			}
			candidates[i].HoldingValue = card.HoldingValue
			candidates[i].AvgPrice = card.AverageCostOfHoldings
			keep[i] = card.HoldingValue.IsPositive()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	result := []HoldingSummary{}
	for i, c := range candidates {
		if keep[i] {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StockName < result[j].StockName })

	s.summaries.SetDefault(key, result)
	return append([]HoldingSummary(nil), result...), nil
}

func groupByName(txns []TransactionRecord, bonuses []BonusRecord) []*holdingGroup {
	var groups []*holdingGroup
	byName := make(map[string]*holdingGroup)
	get := func(rawName, code string) *holdingGroup {
		name := NormalizeName(rawName)
		if name == "" {
			return nil
		}
		g, ok := byName[name]
		if !ok {
			g = &holdingGroup{name: name}
			byName[name] = g
			groups = append(groups, g)
		}
		if g.securityCode == "" {
			g.securityCode = code
		}
		return g
	}

	for _, t := range txns {
		if g := get(t.SecurityName, t.SecurityCode); g != nil {
			g.txns = append(g.txns, t)
		}
	}
	for _, b := range bonuses {
		if g := get(b.SecurityName, b.SecurityCode); g != nil {
			g.bonuses = append(g.bonuses, b)
		}
	}
	return groups
}

// =============================================================================
// WRITES
// =============================================================================

// AddSplit validates and records a split announcement.
func (s *Service) AddSplit(ctx context.Context, split SplitRecord) (SplitRecord, error) {
	if err := requireFields(
		"securityCode", split.SecurityCode,
		"securityName", split.SecurityName,
		"issueDate", split.IssueDate,
	); err != nil {
		return SplitRecord{}, err
	}
	if split.Ratio1.IsZero() {
		return SplitRecord{}, &FieldError{Field: "ratio1"}
	}
	if split.Ratio2.IsZero() {
		return SplitRecord{}, &FieldError{Field: "ratio2"}
	}
	if !split.Ratio1.IsPositive() || !split.Ratio2.IsPositive() {
		return SplitRecord{}, fmt.Errorf("%w: ratios must be positive", ErrInvalidSplit)
	}
	d, err := fifo.NormalizeDate(split.IssueDate)
	if err != nil {
		return SplitRecord{}, fmt.Errorf("%w: %v", ErrInvalidSplit, err)
	}

	split.IssueDate = d.String()
	if split.ID == "" {
		split.ID = uuid.NewString()
	}
	if split.CreatedAt.IsZero() {
		split.CreatedAt = time.Now().UTC()
	}

	if err := s.Store.AppendSplit(ctx, split); err != nil {
		return SplitRecord{}, fmt.Errorf("save split: %w", err)
	}
	s.InvalidateCache()
	s.Logger.Info("Split recorded",
		"security", split.SecurityCode,
		"ratio", split.Ratio1.String()+":"+split.Ratio2.String(),
		"issueDate", split.IssueDate)
	return split, nil
}

// Import bulk-loads raw rows as received. Dates are not validated here:
// a bad date surfaces when the holding is replayed.
func (s *Service) Import(ctx context.Context, b Batch) error {
	for i := range b.Transactions {
		if b.Transactions[i].ID == "" {
			b.Transactions[i].ID = uuid.NewString()
		}
	}
	for i := range b.Bonuses {
		if b.Bonuses[i].ID == "" {
			b.Bonuses[i].ID = uuid.NewString()
		}
	}

	if len(b.Transactions) > 0 {
		if err := s.Store.AppendTransactions(ctx, b.Transactions); err != nil {
			return fmt.Errorf("save transactions: %w", err)
		}
	}
	if len(b.Bonuses) > 0 {
		if err := s.Store.AppendBonuses(ctx, b.Bonuses); err != nil {
			return fmt.Errorf("save bonuses: %w", err)
		}
	}
	for _, split := range b.Splits {
		if _, err := s.AddSplit(ctx, split); err != nil {
			return err
		}
	}

	s.InvalidateCache()
	s.Logger.Info("Rows imported",
		"transactions", len(b.Transactions),
		"bonuses", len(b.Bonuses),
		"splits", len(b.Splits))
	return nil
}

// InvalidateCache drops every cached account summary.
func (s *Service) InvalidateCache() {
	s.summaries.Flush()
}

// =============================================================================
// LISTINGS
// =============================================================================

func (s *Service) Accounts(ctx context.Context) ([]string, error) {
	return s.Store.Accounts(ctx)
}

func (s *Service) Securities(ctx context.Context) ([]Security, error) {
	return s.Store.Securities(ctx)
}

// =============================================================================
// HELPERS
// =============================================================================

// requireFields takes name/value pairs.
func requireFields(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return &FieldError{Field: pairs[i]}
		}
	}
	return nil
}

// onOrBefore reports whether raw falls on or before asOn. Unreadable dates
// are kept.
func onOrBefore(raw string, asOn fifo.Date) bool {
	if asOn.IsZero() {
		return true
	}
	d, err := fifo.NormalizeDate(raw)
	if err != nil || d.IsZero() {
		return true
	}
	return !d.After(asOn)
}

func filterTransactions(txns []TransactionRecord, asOn fifo.Date) []TransactionRecord {
	out := make([]TransactionRecord, 0, len(txns))
	for _, t := range txns {
		if onOrBefore(t.TranDate, asOn) {
			out = append(out, t)
		}
	}
	return out
}

func filterBonuses(bonuses []BonusRecord, asOn fifo.Date) []BonusRecord {
	out := make([]BonusRecord, 0, len(bonuses))
	for _, b := range bonuses {
		if onOrBefore(b.ExDate, asOn) {
			out = append(out, b)
		}
	}
	return out
}

func toRawTransactions(txns []TransactionRecord) []fifo.RawTransaction {
	out := make([]fifo.RawTransaction, len(txns))
	for i, t := range txns {
		out[i] = fifo.RawTransaction{
			Date:      t.TranDate,
			TypeCode:  t.TranType,
			Qty:       t.Qty,
			NetRate:   t.NetRate,
			NetAmount: t.NetAmount,
		}
	}
	return out
}

func buildInput(txns []TransactionRecord, bonuses []BonusRecord, splits []SplitRecord) fifo.Input {
	in := fifo.Input{
		Transactions: toRawTransactions(txns),
		Bonuses:      make([]fifo.RawBonus, len(bonuses)),
		Splits:       make([]fifo.RawSplit, len(splits)),
	}
	for i, b := range bonuses {
		in.Bonuses[i] = fifo.RawBonus{ExDate: b.ExDate, BonusShare: b.BonusShare}
	}
	for i, sp := range splits {
		in.Splits[i] = fifo.RawSplit{IssueDate: sp.IssueDate, Ratio1: sp.Ratio1, Ratio2: sp.Ratio2}
	}
	return in
}

// sumByClass totals |qty| of buy- and sell-classified transactions, using
// the same classification as the ledger.
func sumByClass(txns []fifo.RawTransaction) (bought, sold decimal.Decimal) {
	bought, sold = decimal.Zero, decimal.Zero
	for _, t := range txns {
		switch fifo.Classify(t.TypeCode) {
		case fifo.TxnBuy:
			bought = bought.Add(t.Qty.Abs())
		case fifo.TxnSell:
			sold = sold.Add(t.Qty.Abs())
		}
	}
	return bought, sold
}
