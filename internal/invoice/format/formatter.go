// Package format renders human-readable invoice numbers from templates.
package format

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var seqPadRe = regexp.MustCompile(`\{SEQ(\d+)\}`)

const DefaultNumberTemplate = "INV-{SEQ5}"

var (
	ErrEmptyTemplate   = errors.New("invoice_number_template_empty")
	ErrInvalidSequence = errors.New("invoice_number_sequence_invalid")
	ErrUnresolvedToken = errors.New("invoice_number_unresolved_token")
)

// InvoiceNumber fills template with the issue date and sequence.
//
// Supported tokens: {YYYY} {YY} {MM} {DD} {SEQ} and {SEQn}, which pads the
// sequence with zeros to n digits.
func InvoiceNumber(template string, issuedAt time.Time, seq int64) (string, error) {
	template = strings.TrimSpace(template)
	if template == "" {
		return "", ErrEmptyTemplate
	}
	if seq <= 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidSequence, seq)
	}

	out := strings.NewReplacer(
		"{YYYY}", issuedAt.Format("2006"),
		"{YY}", issuedAt.Format("06"),
		"{MM}", issuedAt.Format("01"),
		"{DD}", issuedAt.Format("02"),
		"{SEQ}", strconv.FormatInt(seq, 10),
	).Replace(template)

	out = seqPadRe.ReplaceAllStringFunc(out, func(m string) string {
		width, err := strconv.Atoi(seqPadRe.FindStringSubmatch(m)[1])
		if err != nil || width <= 0 || width > 18 {
			return m
		}
		return fmt.Sprintf("%0*d", width, seq)
	})

	if strings.ContainsAny(out, "{}") {
		return "", fmt.Errorf("%w: %s", ErrUnresolvedToken, out)
	}
	return out, nil
}

// ValidateTemplate reports whether template renders for a sample sequence.
func ValidateTemplate(template string) error {
	_, err := InvoiceNumber(template, time.Unix(0, 0).UTC(), 1)
	return err
}
