package urlutil

import "testing"

func TestValidate(t *testing.T) {
	valid := []string{
		"http://example.com",
		"https://example.com/path",
	}
	for _, u := range valid {
		if err := ValidateURL(u); err != nil {
			t.Fatalf("expected valid, got error: %v", err)
		}
	}

	invalid := []string{"ftp://example.com", "//example.com", "http:///"}
	for _, u := range invalid {
		if err := ValidateURL(u); err == nil {
			t.Fatalf("expected invalid for %s", u)
		}
	}
}

func TestValidateTemplate(t *testing.T) {
	if err := ValidateTemplate("https://www.dhl.com/nl-nl/home/tracking.html?tracking-id=%s"); err != nil {
		t.Fatalf("expected valid template, got %v", err)
	}
	bad := []string{
		"https://www.dhl.com/tracking",
		"https://www.dhl.com/%s/%s",
		"ftp://files.example.com/%s",
	}
	for _, tmpl := range bad {
		if err := ValidateTemplate(tmpl); err == nil {
			t.Errorf("expected %q to be rejected", tmpl)
		}
	}
}

func TestTrackingURL(t *testing.T) {
	tests := []struct {
		tmpl, code, want string
	}{
		{"https://www.dhl.com/nl-nl/home/tracking.html?tracking-id=%s", "JVGL 0612", "https://www.dhl.com/nl-nl/home/tracking.html?tracking-id=JVGL+0612"},
		{"https://my.dhlecommerce.nl/home/tracktrace/%s", "3S/ABC", "https://my.dhlecommerce.nl/home/tracktrace/3S%2FABC"},
	}
	for _, tt := range tests {
		got, err := TrackingURL(tt.tmpl, tt.code)
		if err != nil {
			t.Fatalf("TrackingURL(%q) failed: %v", tt.tmpl, err)
		}
		if got != tt.want {
			t.Errorf("TrackingURL(%q, %q) = %q, want %q", tt.tmpl, tt.code, got, tt.want)
		}
	}
}

func TestSameHost(t *testing.T) {
	if !SameHost("https://www.dhl.com/a", "https://WWW.dhl.com/b?x=1") {
		t.Error("expected same host")
	}
	if SameHost("https://www.dhl.com/a", "https://consent.example.com/") {
		t.Error("expected different hosts")
	}
}
