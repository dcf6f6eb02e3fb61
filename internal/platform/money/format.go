package money

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.MustParse("es-CR"))

// Display renders the amount for dashboards, using es-CR grouping the way
// the community reports are read, e.g. "₡1 234 567,89" style grouping with
// a leading currency code.
func Display(c Cents, currency string) string {
	major := int64(c) / 100
	minor := int64(c) % 100
	if minor < 0 {
		minor = -minor
	}
	return printer.Sprintf("%s %d,%02d", currency, major, minor)
}
