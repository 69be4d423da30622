// Package parser extracts transfer intents from free-text chat messages.
//
// The parser is deliberately best-effort natural-language-lite: the command
// vocabulary is tiny ("send 5000 to 0123456789", "transfer 5k to ..."), so
// regex heuristics are sufficient. It never returns an error; when the text
// does not look like a transfer command the result is simply absent. Keeping
// it behind this package boundary means it can be swapped for a stricter
// grammar later without touching the state machine.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/lexipay/go-payments-backend/internal/domain"
)

var (
	// "5k" shorthand, checked before the plain-digit pattern.
	amountKRE = regexp.MustCompile(`(?i)(\d+)\s*k\b`)
	// First run of >= 3 digits after thousands separators are stripped.
	amountRE = regexp.MustCompile(`(\d{3,})`)
	// First run of exactly 10 digits, taken as the destination account.
	accountRE = regexp.MustCompile(`\b(\d{10})\b`)
	// Transfer verb required for a command to count as an intent.
	verbRE = regexp.MustCompile(`(?i)send|transfer`)
)

// ParseAmount extracts a whole-Naira amount from text.
//
// Supported shapes: "5k" (× 1000), "5,000", "5000", "₦5000". The "k"
// shorthand wins when both patterns are present. Returns (0, false) when no
// amount is found.
func ParseAmount(text string) (int64, bool) {
	if m := amountKRE.FindStringSubmatch(text); m != nil {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, false
		}
		return n * 1000, true
	}
	stripped := strings.ReplaceAll(text, ",", "")
	if m := amountRE.FindStringSubmatch(stripped); m != nil {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// ParseTransferCommand extracts a transfer intent from free text, e.g.
// "send 5000 to 0123456789" or "transfer 5k to 0123456789".
//
// An intent is recognized only when the text contains a transfer verb AND
// both an amount and a 10-digit account were extracted. When the text holds
// several 10-digit runs the first one is used.
func ParseTransferCommand(text string) (domain.TransferIntent, bool) {
	acct := accountRE.FindStringSubmatch(text)
	amount, okAmt := ParseAmount(text)
	if verbRE.MatchString(text) && acct != nil && okAmt {
		return domain.TransferIntent{Amount: amount, Account: acct[1]}, true
	}
	return domain.TransferIntent{}, false
}
