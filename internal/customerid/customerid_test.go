package customerid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"1234567890":             "1234567890",
		"123-456-7890":           "1234567890",
		"customers/123-456-7890": "1234567890",
		"  987 654 3210 ":        "9876543210",
		"customers/":             "",
		"":                       "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "Normalize(%q)", in)
	}
}

func TestResourceNames_SortsAndDeduplicates(t *testing.T) {
	got := ResourceNames([]string{"customers/300", "100", "1-00", "", "200", "customers/300"})
	assert.Equal(t, []string{"customers/100", "customers/200", "customers/300"}, got)
}

func TestUnique_PreservesFirstOccurrence(t *testing.T) {
	got := Unique("300", "1-00", "", "300", "100", "200")
	assert.Equal(t, []string{"300", "100", "200"}, got)
}
