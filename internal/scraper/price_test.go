package scraper

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractID(t *testing.T) {
	tests := map[string]struct {
		url  string
		want string
	}{
		"oglas suffix":         {"https://www.njuskalo.hr/nekretnine/stan-zagreb-oglas-44138570", "44138570"},
		"oglas mid url":        {"https://www.njuskalo.hr/nekretnine/stan-oglas-123-izdvojeno", "123"},
		"trailing digits":      {"https://www.njuskalo.hr/nekretnine/stan-987654", "987654"},
		"no digits":            {"https://www.njuskalo.hr/nekretnine/stan", ""},
		"prefers oglas suffix": {"https://www.njuskalo.hr/stan-55m2-oglas-777", "777"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.want, ExtractID(tc.url))
		})
	}
}

func TestNormalizePrice(t *testing.T) {
	tests := map[string]struct {
		in       string
		wantNum  *float64
		wantCurr *string
	}{
		"euro thousands":  {"169.000 €", f(169000), s("EUR")},
		"euro decimals":   {"1.234,56 €", f(1234.56), s("EUR")},
		"kuna":            {"750.000 kn", f(750000), s("HRK")},
		"no currency":     {"12345", f(12345), nil},
		"no digits":       {"Cijena na upit", nil, nil},
		"currency only":   {"€", nil, s("EUR")},
		"embedded number": {"od 98.500 € mjesečno", f(98500), s("EUR")},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			num, curr := NormalizePrice(tc.in)
			if tc.wantNum == nil {
				require.Nil(t, num)
			} else {
				require.NotNil(t, num)
				require.InDelta(t, *tc.wantNum, *num, 0.001)
			}
			if tc.wantCurr == nil {
				require.Nil(t, curr)
			} else {
				require.NotNil(t, curr)
				require.Equal(t, *tc.wantCurr, *curr)
			}
		})
	}
}

func TestExtractSqm(t *testing.T) {
	v := extractSqm("Stambena površina: 55 m2")
	require.NotNil(t, v)
	require.InDelta(t, 55, *v, 0.001)

	require.Nil(t, extractSqm("bez podataka"))
	require.Nil(t, extractSqm(""))
}

func f(v float64) *float64 { return &v }
func s(v string) *string   { return &v }
