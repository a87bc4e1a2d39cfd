package contact

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"081234567890", "6281234567890"},
		{"6281234567890", "6281234567890"},
		{"+6281234567890", "+6281234567890"},
		{"0", "62"},
		{"", ""},
		// Only the leading trunk digit is rewritten; later zeros stay.
		{"0812003450", "62812003450"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePhone(tt.in), "input %q", tt.in)
	}
}

func TestTelLinkUsesRawNumber(t *testing.T) {
	assert.Equal(t, "tel:081234567890", TelLink("081234567890"))
}

func TestWhatsAppLink(t *testing.T) {
	link := WhatsAppLink("081234567890", "Dompet kulit coklat")

	assert.True(t, strings.HasPrefix(link, "https://wa.me/6281234567890?text="), "link %q", link)
	assert.NotContains(t, link, " ", "message text must be URL-escaped")
	assert.Contains(t, link, "Dompet+kulit+coklat")
	assert.Contains(t, link, "DaruratKu")
}

func TestWhatsAppLinkKeepsInternationalNumber(t *testing.T) {
	link := WhatsAppLink("6281299988877", "Kunci motor")
	assert.True(t, strings.HasPrefix(link, "https://wa.me/6281299988877?text="), "link %q", link)
}

func TestFormatReward(t *testing.T) {
	line, ok := FormatReward(50000)
	assert.True(t, ok)
	assert.Equal(t, "Rp 50.000", line)

	line, ok = FormatReward(1500000)
	assert.True(t, ok)
	assert.Equal(t, "Rp 1.500.000", line)

	line, ok = FormatReward(500)
	assert.True(t, ok)
	assert.Equal(t, "Rp 500", line)
}

func TestFormatRewardSuppressed(t *testing.T) {
	for _, amount := range []int64{0, -1, -50000} {
		line, ok := FormatReward(amount)
		assert.False(t, ok, "amount %d", amount)
		assert.Empty(t, line)
	}
}
