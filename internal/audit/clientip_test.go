package audit

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIPPrecedence(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded first entry", map[string]string{"X-Forwarded-For": " 203.0.113.7 , 10.0.0.1", "X-Real-IP": "198.51.100.2"}, "10.0.0.9:5000", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.2"}, "10.0.0.9:5000", "198.51.100.2"},
		{"empty forwarded falls through", map[string]string{"X-Forwarded-For": " , 10.0.0.1"}, "10.0.0.9:5000", "10.0.0.9"},
		{"remote addr", nil, "10.0.0.9:5000", "10.0.0.9"},
		{"ipv6 remote", nil, "[2001:db8::1]:443", "2001:db8::1"},
		{"remote without port", nil, "10.0.0.9", "10.0.0.9"},
		{"nothing", nil, "", "unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/users", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tc.want, ClientIP(req))
		})
	}
}
