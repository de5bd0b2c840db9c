package headers

import (
	"fmt"
	"strings"
)

// ParseHeaders converts "Key: Value" strings into a map. Later entries win.
// Lines without a colon, with an empty name, or with line breaks are rejected.
func ParseHeaders(h []string) (map[string]string, error) {
	m := make(map[string]string, len(h))
	for _, hdr := range h {
		parts := strings.SplitN(hdr, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid header %q: expected \"Key: Value\"", hdr)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || strings.ContainsAny(key, " \t") {
			return nil, fmt.Errorf("invalid header name in %q", hdr)
		}
		if strings.ContainsAny(key+value, "\r\n") {
			return nil, fmt.Errorf("header %q contains a line break", key)
		}
		m[key] = value
	}
	return m, nil
}
