package ebay

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParsePriceText(t *testing.T) {
	cases := map[string]string{
		"$1,234.56":        "1234.56",
		"$45.00":           "45.00",
		"$ 9":              "9",
		"US $120.99":       "120.99",
		"$10.00 to $20.00": "",
		"Best offer":       "",
		"":                 "",
	}
	for in, want := range cases {
		assert.Equal(t, want, parsePriceText(in), in)
	}
}

func TestParseSoldDate(t *testing.T) {
	got, ok := parseSoldDate("Sold  Oct 3, 2024")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 10, 3, 0, 0, 0, 0, time.UTC), got)

	_, ok = parseSoldDate("Ended yesterday")
	assert.False(t, ok)
}

func TestItemIDFromURL(t *testing.T) {
	assert.Equal(t, "1234567890", itemIDFromURL("https://www.ebay.com/itm/1234567890?hash=abc"))
	assert.Equal(t, "987", itemIDFromURL("https://www.ebay.com/itm/some-title/987"))
	assert.Equal(t, "", itemIDFromURL("https://www.ebay.com/sch/i.html"))
}

func TestSoldPageURL(t *testing.T) {
	u, err := url.Parse(SoldPageURL("Topps Chrome #1"))
	assert.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "Topps Chrome #1", q.Get("_nkw"))
	assert.Equal(t, "1", q.Get("LH_Sold"))
	assert.Equal(t, "1", q.Get("LH_Complete"))
	assert.Equal(t, "13", q.Get("_sop"))
}

func TestFindChromeBinaryPrefersConfigured(t *testing.T) {
	assert.Equal(t, "/custom/chrome", findChromeBinary("/custom/chrome"))
}
