// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
)

var hundred = decimal.NewFromInt(100)

var (
	structOnce     sync.Once
	structValidate *validator.Validate
)

func structs() *validator.Validate {
	structOnce.Do(func() {
		structValidate = validator.New(validator.WithRequiredStructEnabled())
		structValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return structValidate
}

// Struct runs the `validate` tags of v and renders the failures as messages.
func Struct(v any) []string {
	err := structs().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, describe(fe))
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}

func NewClient(p model.CreateClientPayload) []string {
	return Struct(p)
}

// ReceiptConfig also requires an address when an emailed receipt is requested.
func ReceiptConfig(p model.ReceiptConfigPayload) []string {
	errs := Struct(p)
	if p.EmailReceipt && strings.TrimSpace(p.Email) == "" {
		errs = append(errs, "email is required for an emailed receipt")
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
