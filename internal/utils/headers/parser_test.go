package headers

import (
	"reflect"
	"testing"
)

func TestParseHeaders(t *testing.T) {
	in := []string{"X-Client: tracktime", "Accept: application/json", "accept-language:nl-NL"}
	out, err := ParseHeaders(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := map[string]string{
		"X-Client":        "tracktime",
		"Accept":          "application/json",
		"accept-language": "nl-NL",
	}
	if !reflect.DeepEqual(out, expected) {
		t.Fatalf("unexpected parse result: %#v", out)
	}
}

func TestParseHeaders_Invalid(t *testing.T) {
	tests := []string{
		"BadHeader",
		": value",
		"Two Words: x",
		"X-Test: a\r\nInjected: b",
	}
	for _, tt := range tests {
		if _, err := ParseHeaders([]string{tt}); err == nil {
			t.Errorf("ParseHeaders(%q) should fail", tt)
		}
	}
}

func TestParseHeaders_ValueWithColon(t *testing.T) {
	out, err := ParseHeaders([]string{"Referer: https://www.dhl.com/nl-nl"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["Referer"] != "https://www.dhl.com/nl-nl" {
		t.Errorf("got %q", out["Referer"])
	}
}
