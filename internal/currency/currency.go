// Package currency holds display metadata for the supported currencies.
package currency

import (
	"strings"
)

// SymbolPosition places the symbol relative to the amount.
type SymbolPosition string

const (
	SymbolBefore SymbolPosition = "before"
	SymbolAfter  SymbolPosition = "after"
)

// DefaultCode is used when a code is unknown.
const DefaultCode = "USD"

// Info describes how amounts in a currency are displayed.
type Info struct {
	Code               string         `json:"code"`
	Symbol             string         `json:"symbol"`
	Name               string         `json:"name"`
	SymbolPosition     SymbolPosition `json:"symbolPosition"`
	DecimalSeparator   string         `json:"decimalSeparator"`
	ThousandsSeparator string         `json:"thousandsSeparator"`
	DecimalPlaces      int32          `json:"decimalPlaces"`
}

var currencies = []Info{
	{Code: "USD", Symbol: "$", Name: "US Dollar", SymbolPosition: SymbolBefore, DecimalSeparator: ".", ThousandsSeparator: ",", DecimalPlaces: 2},
	{Code: "EUR", Symbol: "€", Name: "Euro", SymbolPosition: SymbolBefore, DecimalSeparator: ",", ThousandsSeparator: ".", DecimalPlaces: 2},
	{Code: "GBP", Symbol: "£", Name: "British Pound", SymbolPosition: SymbolBefore, DecimalSeparator: ".", ThousandsSeparator: ",", DecimalPlaces: 2},
	{Code: "CAD", Symbol: "CA$", Name: "Canadian Dollar", SymbolPosition: SymbolBefore, DecimalSeparator: ".", ThousandsSeparator: ",", DecimalPlaces: 2},
	{Code: "AUD", Symbol: "A$", Name: "Australian Dollar", SymbolPosition: SymbolBefore, DecimalSeparator: ".", ThousandsSeparator: ",", DecimalPlaces: 2},
	{Code: "JPY", Symbol: "¥", Name: "Japanese Yen", SymbolPosition: SymbolBefore, DecimalSeparator: ".", ThousandsSeparator: ",", DecimalPlaces: 0},
	{Code: "CNY", Symbol: "¥", Name: "Chinese Yuan", SymbolPosition: SymbolBefore, DecimalSeparator: ".", ThousandsSeparator: ",", DecimalPlaces: 2},
	{Code: "INR", Symbol: "₹", Name: "Indian Rupee", SymbolPosition: SymbolBefore, DecimalSeparator: ".", ThousandsSeparator: ",", DecimalPlaces: 2},
}

var byCode = func() map[string]Info {
	out := make(map[string]Info, len(currencies))
	for _, c := range currencies {
		out[c.Code] = c
	}
	return out
}()

// All returns the supported currencies in display order.
func All() []Info {
	out := make([]Info, len(currencies))
	copy(out, currencies)
	return out
}

// Supported reports whether code names a known currency.
func Supported(code string) bool {
	_, ok := byCode[normalize(code)]
	return ok
}

// Lookup returns the metadata for code, falling back to USD.
func Lookup(code string) Info {
	if info, ok := byCode[normalize(code)]; ok {
		return info
	}
	return byCode[DefaultCode]
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
