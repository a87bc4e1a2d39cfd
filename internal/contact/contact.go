// Package contact builds the telephony and messaging deep links shown on a
// report's detail view, and formats reward amounts for display.
package contact

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CountryCode is the international prefix that replaces the domestic trunk
// digit when composing WhatsApp links.
const CountryCode = "62"

const messageTemplate = `Halo, saya melihat laporan barang hilang "%s" di DaruratKu. Apakah masih tersedia atau sudah ditemukan?`

var rupiah = message.NewPrinter(language.Indonesian)

// NormalizePhone rewrites a number in local dialing format to international
// form: a single leading trunk "0" becomes the country code. Numbers that do
// not start with "0" pass through unchanged.
func NormalizePhone(phone string) string {
	if strings.HasPrefix(phone, "0") {
		return CountryCode + phone[1:]
	}
	return phone
}

// TelLink returns a direct-dial URI using the stored phone number verbatim.
func TelLink(phone string) string {
	return "tel:" + phone
}

// WhatsAppLink returns a wa.me URI addressed to the normalized number,
// carrying the templated inquiry message for the given report title.
func WhatsAppLink(phone, title string) string {
	text := fmt.Sprintf(messageTemplate, title)
	return fmt.Sprintf("https://wa.me/%s?text=%s", NormalizePhone(phone), url.QueryEscape(text))
}

// FormatReward renders a reward amount as Indonesian Rupiah, e.g.
// 50000 -> "Rp 50.000". The second return is false when the amount is zero
// or negative, in which case no reward line should be shown.
func FormatReward(amount int64) (string, bool) {
	if amount <= 0 {
		return "", false
	}
	return rupiah.Sprintf("Rp %d", amount), true
}
