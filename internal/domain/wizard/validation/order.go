// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package validation

import (
	"regexp"
	"strings"
	"time"

	"github.com/ManuGH/ordwiz/internal/domain/pricing"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
)

const (
	MaxNotesLength = 1000
	DateLayout     = "2006-01-02"
)

var receiptNumberPattern = regexp.MustCompile(`^[A-Z0-9-]{3,32}$`)

func ClientSelection(c *model.ClientSelectionContext) []string {
	var errs collector
	if c == nil {
		errs.add("client must be selected")
		errs.add("branch must be selected")
		return errs.result()
	}
	if c.ClientID == "" {
		errs.add("client must be selected")
	}
	if c.BranchID == "" {
		errs.add("branch must be selected")
	}
	errs = append(errs, ReceiptNumber(c.ReceiptNumber)...)
	return errs.result()
}

func ReceiptNumber(n string) []string {
	if n == "" {
		return []string{"receipt number is required"}
	}
	if !receiptNumberPattern.MatchString(n) {
		return []string{"receipt number must be 3-32 characters of A-Z, 0-9 or '-'"}
	}
	return nil
}

// ItemsComplete checks that the item stage may be left.
func ItemsComplete(im *model.ItemManagementContext) []string {
	if im == nil || len(im.Items) == 0 {
		return []string{"order must contain at least one item"}
	}
	if im.Phase != model.PhaseIdle && im.Phase != "" {
		return []string{"finish or cancel the item in progress first"}
	}
	return nil
}

// CompletionDate checks that due is not before the day the order was started.
func CompletionDate(due, startedAt time.Time) []string {
	day := func(t time.Time) time.Time {
		y, m, d := t.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	if day(due).Before(day(startedAt)) {
		return []string{"completion date must not be in the past"}
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, []string) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, []string{"date must use the YYYY-MM-DD format"}
	}
	return t, nil
}

func Urgency(u pricing.Urgency) []string {
	if _, ok := u.Factor(); !ok {
		return []string{"unknown urgency " + string(u)}
	}
	return nil
}

func Discount(d model.DiscountSelection) []string {
	p, ok := d.Percent()
	if !ok {
		return []string{"unknown discount type " + string(d.Type)}
	}
	if p.IsNegative() || p.GreaterThan(hundred) {
		return []string{"discount percent must be between 0 and 100"}
	}
	return nil
}

// Payment validates the method and caps the prepayment at total.
func Payment(p model.PaymentDetails, total pricing.Money) []string {
	var errs collector
	switch p.Method {
	case model.PaymentTerminal, model.PaymentCash, model.PaymentBankTransfer:
	case "":
		errs.add("payment method is required")
	default:
		errs.add("unknown payment method %s", p.Method)
	}
	if p.Prepayment < 0 {
		errs.add("prepayment must not be negative")
	} else if p.Prepayment > total {
		errs.add("prepayment must not exceed the order total")
	}
	return errs.result()
}

func Notes(s string) []string {
	if len(s) > MaxNotesLength {
		return []string{"notes must not exceed 1000 characters"}
	}
	return nil
}

// ExecutionParams validates the whole stage against the order total.
func ExecutionParams(e *model.ExecutionParamsContext, startedAt time.Time, total pricing.Money) []string {
	if e == nil {
		return []string{"execution parameters are missing"}
	}
	var errs collector
	if e.ExpectedCompletion == nil {
		errs.add("completion date is required")
	} else {
		errs = append(errs, CompletionDate(*e.ExpectedCompletion, startedAt)...)
	}
	errs = append(errs, Urgency(e.Urgency)...)
	errs = append(errs, Discount(e.Discount)...)
	errs = append(errs, Payment(e.Payment, total)...)
	errs = append(errs, Notes(e.Notes)...)
	return errs.result()
}

func Legal(l model.LegalAcceptance) []string {
	var errs collector
	if !l.TermsAccepted {
		errs.add("terms must be accepted")
	}
	if strings.TrimSpace(l.SignerName) == "" {
		errs.add("signer name is required")
	}
	if strings.TrimSpace(l.Signature) == "" {
		errs.add("signature is required")
	}
	return errs.result()
}

func Receipt(r model.ReceiptConfiguration) []string {
	if !r.Configured {
		return []string{"receipt must be configured"}
	}
	return nil
}

// WorkingHours checks an "HH:MM" opening range; open must be before close.
func WorkingHours(opens, closes string) []string {
	o, err1 := time.Parse("15:04", opens)
	c, err2 := time.Parse("15:04", closes)
	if err1 != nil || err2 != nil {
		return []string{"working hours must use the HH:MM format"}
	}
	if !o.Before(c) {
		return []string{"opening time must be before closing time"}
	}
	return nil
}
