package ua

import "testing"

func TestIsBot(t *testing.T) {
	cases := map[string]bool{
		"": true,
		"Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)": true,
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
			"(KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36": false,
	}
	for raw, want := range cases {
		if got := IsBot(raw); got != want {
			t.Errorf("IsBot(%q) = %v, want %v", raw, got, want)
		}
	}
}
