package security

import (
	"context"
	"errors"
	"net"
	"testing"
)

func TestValidateNavigationTarget(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		// The daemon's own idle page carries no request.
		{"about:blank allowed", "about:blank", nil},

		// Public IP literals need no DNS and must pass.
		{"public ip", "http://93.184.216.34/", nil},
		{"public ip with port", "https://93.184.216.34:8443/path?q=1", nil},

		// Scheme gate.
		{"file scheme", "file:///etc/passwd", ErrBlockedScheme},
		{"javascript scheme", "javascript:alert(1)", ErrBlockedScheme},
		{"data scheme", "data:text/html,<b>x</b>", ErrBlockedScheme},
		{"ftp scheme", "ftp://93.184.216.34", ErrBlockedScheme},
		{"schemeless", "example.com", ErrBlockedScheme},
		{"empty", "", ErrInvalidURL},

		// Loopback in every spelling.
		{"localhost", "http://localhost/admin", ErrLocalhostBlocked},
		{"localhost with port", "http://localhost:7070", ErrLocalhostBlocked},
		{"localhost subdomain", "http://foo.localhost/", ErrLocalhostBlocked},
		{"localhost fake tld", "http://localhost.example/", ErrLocalhostBlocked},
		{"ip6-localhost", "http://ip6-localhost/", ErrLocalhostBlocked},
		{"plain loopback", "http://127.0.0.1/", ErrLocalhostBlocked},
		{"deep loopback range", "http://127.255.255.254/", ErrLocalhostBlocked},
		{"ipv6 loopback", "http://[::1]/", ErrLocalhostBlocked},
		{"ipv4-mapped loopback", "http://[::ffff:127.0.0.1]/", ErrLocalhostBlocked},

		// Obfuscated IP encodings.
		{"decimal loopback", "http://2130706433/", ErrLocalhostBlocked},
		{"octal loopback", "http://0177.0.0.1/", ErrLocalhostBlocked},
		{"hex loopback", "http://0x7f.0.0.1/", ErrLocalhostBlocked},
		{"two-part loopback", "http://127.1/", ErrLocalhostBlocked},
		{"three-part loopback", "http://127.0.1/", ErrLocalhostBlocked},
		{"decimal private", "http://3232235777/", ErrPrivateIPBlocked}, // 192.168.1.1

		// Private, link-local, unspecified.
		{"rfc1918 10.x", "http://10.0.0.1", ErrPrivateIPBlocked},
		{"rfc1918 172.16.x", "http://172.16.0.1", ErrPrivateIPBlocked},
		{"rfc1918 192.168.x", "http://192.168.1.1", ErrPrivateIPBlocked},
		{"link-local", "http://169.254.1.1", ErrPrivateIPBlocked},
		{"unspecified", "http://0.0.0.0", ErrPrivateIPBlocked},

		// Metadata addresses report the specific error, not the generic
		// link-local one.
		{"aws metadata ip", "http://169.254.169.254/latest/meta-data/", ErrMetadataBlocked},
		{"alibaba metadata ip", "http://100.100.100.200/", ErrMetadataBlocked},
		{"gcp metadata host", "http://metadata.google.internal/", ErrMetadataBlocked},
		{"aws metadata host", "http://instance-data/", ErrMetadataBlocked},
		{"kubernetes api host", "http://kubernetes.default.svc/", ErrPrivateIPBlocked},

		// Names that resolve nowhere fail closed (.invalid never resolves).
		{"unresolvable host", "http://cdpd-test.invalid/", ErrDNSLookupFailed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateNavigationTarget(context.Background(), tc.url)
			if tc.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateNavigationTarget(%q) = %v, want nil", tc.url, err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("ValidateNavigationTarget(%q) = %v, want %v", tc.url, err, tc.wantErr)
			}
		})
	}
}

func TestParseHostIP(t *testing.T) {
	tests := []struct {
		host string
		want string // "" means not an IP
	}{
		{"127.0.0.1", "127.0.0.1"},
		{"2130706433", "127.0.0.1"},
		{"0177.0.0.1", "127.0.0.1"},
		{"0x7f.0.0.1", "127.0.0.1"},
		{"127.1", "127.0.0.1"},
		{"127.0.1", "127.0.0.1"},
		{"192.168.1.1", "192.168.1.1"},
		{"::1", "::1"},
		{"example.com", ""},
		{"256.1.1.1", ""},
		{"127.0.0.0.1", ""},
		{"127.0.257", ""}, // ambiguous three-part encoding
	}

	for _, tc := range tests {
		t.Run(tc.host, func(t *testing.T) {
			got := parseHostIP(tc.host)
			if tc.want == "" {
				if got != nil {
					t.Errorf("parseHostIP(%q) = %v, want nil", tc.host, got)
				}
				return
			}
			if got == nil || !got.Equal(net.ParseIP(tc.want)) {
				t.Errorf("parseHostIP(%q) = %v, want %s", tc.host, got, tc.want)
			}
		})
	}
}

func TestCheckIPMetadataBeforeLinkLocal(t *testing.T) {
	if err := checkIP(net.ParseIP("169.254.169.254")); !errors.Is(err, ErrMetadataBlocked) {
		t.Errorf("metadata IP classified as %v, want ErrMetadataBlocked", err)
	}
	if err := checkIP(net.ParseIP("169.254.1.1")); !errors.Is(err, ErrPrivateIPBlocked) {
		t.Errorf("plain link-local classified as %v, want ErrPrivateIPBlocked", err)
	}
}
