// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package receipt renders plain-text receipts for persisted orders and
// optionally archives them on disk.
package receipt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
	"golang.org/x/text/unicode/norm"

	"github.com/ManuGH/ordwiz/internal/domain/pricing"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/ports"
	"github.com/ManuGH/ordwiz/internal/log"
)

const lineWidth = 48

var _ ports.ReceiptRenderer = (*Renderer)(nil)

// OrderSource loads persisted orders. The sqlite repository satisfies it.
type OrderSource interface {
	GetOrder(ctx context.Context, orderID string) (ports.Order, error)
}

// Config controls receipt layout and archiving.
type Config struct {
	ShopName string `yaml:"shopName" validate:"required,max=48"`
	Language string `yaml:"language" validate:"required,bcp47_language_tag"`
	Currency string `yaml:"currency" validate:"required,max=8"`
	// Dir receives a copy of every rendered receipt. Empty disables archiving.
	Dir string `yaml:"dir"`
}

// DefaultConfig returns an English layout without archiving.
func DefaultConfig() Config {
	return Config{ShopName: "Dry Cleaning", Language: "en", Currency: "UAH"}
}

// Renderer implements ports.ReceiptRenderer.
type Renderer struct {
	orders   OrderSource
	branches ports.BranchDirectory
	cfg      Config
	printer  *message.Printer
	logger   zerolog.Logger
}

// New validates cfg and returns a renderer. branches may be nil, in which
// case receipts show the raw branch id.
func New(orders OrderSource, branches ports.BranchDirectory, cfg Config) (*Renderer, error) {
	if orders == nil {
		return nil, errors.New("receipt: order source is required")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("receipt: invalid config: %w", err)
	}
	tag, err := language.Parse(cfg.Language)
	if err != nil {
		return nil, fmt.Errorf("receipt: language %q: %w", cfg.Language, err)
	}
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("receipt: create dir: %w", err)
		}
	}
	return &Renderer{
		orders:   orders,
		branches: branches,
		cfg:      cfg,
		printer:  message.NewPrinter(tag),
		logger:   log.WithComponent("receipt"),
	}, nil
}

// Render formats the order's receipt. When archiving is enabled the text is
// also written to <Dir>/<orderID>.txt, replacing any previous copy.
func (r *Renderer) Render(ctx context.Context, orderID string) ([]byte, error) {
	order, err := r.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	out := r.format(ctx, order)

	if r.cfg.Dir != "" {
		path := filepath.Join(r.cfg.Dir, filepath.Base(orderID)+".txt")
		if err := writeAtomic(ctx, path, out); err != nil {
			return nil, err
		}
		logger := log.WithContext(ctx, r.logger)
		logger.Debug().Str(log.FieldOrderID, orderID).Str(log.FieldPath, path).Msg("receipt archived")
	}
	return out, nil
}

func writeAtomic(ctx context.Context, path string, data []byte) error {
	logger := log.FromContext(ctx)

	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o640))
	if err != nil {
		return fmt.Errorf("create pending receipt file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending receipt file")
		}
	}()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write receipt: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace receipt file: %w", err)
	}
	return nil
}

func (r *Renderer) format(ctx context.Context, o ports.Order) []byte {
	var b bytes.Buffer
	rule := strings.Repeat("-", lineWidth)

	fmt.Fprintln(&b, center(r.cfg.ShopName))
	fmt.Fprintln(&b, rule)
	r.field(&b, "Receipt", o.ReceiptNumber)
	if o.UniqueTag != "" {
		r.field(&b, "Tag", o.UniqueTag)
	}
	r.field(&b, "Order", o.ID)
	r.field(&b, "Date", o.CreatedAt.Format("2006-01-02 15:04"))
	r.field(&b, "Branch", r.branchName(ctx, o.BranchID))
	r.field(&b, "Client", clientLine(o))
	r.field(&b, "Ready by", o.ExpectedCompletion.Format("2006-01-02"))
	fmt.Fprintln(&b, rule)

	for i, it := range o.Items {
		name, qty, unit := "item", decimal.Zero, ""
		if bi := it.Record.BasicInfo; bi != nil {
			name, qty, unit = norm.NFC.String(bi.ItemName), bi.Quantity, string(bi.Unit)
		}
		r.amount(&b, fmt.Sprintf("%2d. %s x%s %s", i+1, name, qty.String(), unit), it.Breakdown.FinalTotalPrice)
		for _, m := range it.Breakdown.Modifiers {
			r.amount(&b, "      "+modifierLabel(m), m.Impact)
		}
		if it.Breakdown.UrgencyAmount != 0 {
			r.amount(&b, "      urgency", it.Breakdown.UrgencyAmount)
		}
		if it.Breakdown.DiscountAmount != 0 {
			r.amount(&b, "      discount", -it.Breakdown.DiscountAmount)
		}
	}
	fmt.Fprintln(&b, rule)

	t := o.Totals
	r.amount(&b, "Items subtotal", t.ItemsSubtotal)
	if t.UrgencyAmount != 0 {
		r.amount(&b, fmt.Sprintf("Urgency (%s)", o.Urgency), t.UrgencyAmount)
	}
	if t.DiscountAmount != 0 {
		r.amount(&b, fmt.Sprintf("Discount (%s)", o.Discount.Type), -t.DiscountAmount)
	}
	r.amount(&b, "TOTAL", t.TotalAmount)
	r.amount(&b, "Prepaid", o.Payment.Prepayment)
	r.amount(&b, "Balance due", t.TotalAmount-o.Payment.Prepayment)
	if o.Payment.Method != "" {
		r.field(&b, "Payment", string(o.Payment.Method))
	}
	if o.Notes != "" {
		fmt.Fprintln(&b, rule)
		fmt.Fprintln(&b, norm.NFC.String(o.Notes))
	}
	fmt.Fprintln(&b, rule)
	r.field(&b, "Signed by", norm.NFC.String(o.SignerName))
	return b.Bytes()
}

func (r *Renderer) branchName(ctx context.Context, id string) string {
	if r.branches == nil {
		return id
	}
	br, err := r.branches.GetBranch(ctx, id)
	if err != nil {
		return id
	}
	return br.Name
}

// Money renders m in major units using the configured locale.
func (r *Renderer) Money(m pricing.Money) string {
	major := decimal.New(int64(m), -2).InexactFloat64()
	return r.printer.Sprintf("%v %s", number.Decimal(major, number.Scale(2)), r.cfg.Currency)
}

func (r *Renderer) field(b *bytes.Buffer, label, value string) {
	fmt.Fprintf(b, "%-10s %s\n", label, value)
}

func (r *Renderer) amount(b *bytes.Buffer, label string, m pricing.Money) {
	v := r.Money(m)
	pad := lineWidth - len([]rune(label)) - len([]rune(v))
	if pad < 1 {
		pad = 1
	}
	fmt.Fprintf(b, "%s%s%s\n", label, strings.Repeat(" ", pad), v)
}

func clientLine(o ports.Order) string {
	name := strings.TrimSpace(o.Client.FirstName + " " + o.Client.LastName)
	name = norm.NFC.String(name)
	if o.Client.Phone != "" {
		return name + ", " + o.Client.Phone
	}
	return name
}

func modifierLabel(m pricing.ModifierImpact) string {
	switch {
	case m.Kind.IsPercentage():
		return fmt.Sprintf("%s %s%%", m.ModifierID, m.AppliedValue.String())
	case m.Quantity > 1:
		return fmt.Sprintf("%s x%d", m.ModifierID, m.Quantity)
	default:
		return m.ModifierID
	}
}

func center(s string) string {
	n := len([]rune(s))
	if n >= lineWidth {
		return s
	}
	return strings.Repeat(" ", (lineWidth-n)/2) + s
}
