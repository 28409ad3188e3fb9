package finance

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders amounts with the grouping of a locale, e.g. $ 2.464.000,00
type Formatter struct {
	printer *message.Printer
	symbol  string
}

func NewFormatter(locale, currency string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.MustParse("es-AR")
	}
	symbol := "$"
	if currency != "" && currency != "ARS" {
		symbol = currency
	}
	return &Formatter{printer: message.NewPrinter(tag), symbol: symbol}
}

func (f *Formatter) Money(d decimal.Decimal) string {
	v, _ := d.Round(2).Float64()
	return f.symbol + " " + f.printer.Sprint(number.Decimal(v, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

func (f *Formatter) Number(d decimal.Decimal) string {
	v, _ := d.Float64()
	return f.printer.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}
