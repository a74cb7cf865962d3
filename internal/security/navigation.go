// Package security guards cdpd's caller-facing trust boundary. gRPC clients
// hand the daemon URLs and headers that a Chromium running next to it will
// act on; an unchecked navigate target would let any client use that browser
// to read the operator's loopback services, the private network, or a cloud
// metadata endpoint. Every caller-supplied target goes through this package
// before it reaches a page. The operator-configured cdp_endpoint is not a
// caller input: it is trusted configuration, dialed directly, and never
// passes through these checks.
package security

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/idna"
)

// Navigation-target errors, matched with errors.Is at the gRPC boundary.
var (
	ErrInvalidURL       = errors.New("invalid navigation target")
	ErrBlockedScheme    = errors.New("navigation target scheme not allowed")
	ErrLocalhostBlocked = errors.New("loopback navigation targets are not allowed")
	ErrPrivateIPBlocked = errors.New("private or link-local navigation targets are not allowed")
	ErrMetadataBlocked  = errors.New("cloud metadata navigation targets are not allowed")
	ErrDNSLookupFailed  = errors.New("navigation target did not resolve")
	ErrInvalidIDN       = errors.New("invalid internationalized domain name")
)

var allowedSchemes = map[string]bool{
	"http":  true,
	"https": true,
}

// hostDenylist maps exact hostnames the daemon's browser must never fetch to
// the error reported for them. Cloud metadata names resolve to credential
// services from inside a cloud host; the kubernetes names resolve to the
// cluster API from inside a pod. Localhost literals also appear here so the
// common case fails before any DNS work.
var hostDenylist = map[string]error{
	"localhost": ErrLocalhostBlocked,

	"metadata.google.internal":   ErrMetadataBlocked,
	"metadata":                   ErrMetadataBlocked,
	"instance-data":              ErrMetadataBlocked,
	"instance-data.ec2.internal": ErrMetadataBlocked,
	"metadata.azure.com":         ErrMetadataBlocked,
	"metadata.aliyun.com":        ErrMetadataBlocked,
	"metadata.oraclecloud.com":   ErrMetadataBlocked,
	"metadata.digitalocean.com":  ErrMetadataBlocked,
	"metadata.hetzner.cloud":     ErrMetadataBlocked,
	"metadata.vultr.com":         ErrMetadataBlocked,
	"metadata.linode.com":        ErrMetadataBlocked,
	"metadata.tencentyun.com":    ErrMetadataBlocked,

	"kubernetes.default.svc": ErrPrivateIPBlocked,
	"kubernetes.default":     ErrPrivateIPBlocked,
	"kubernetes":             ErrPrivateIPBlocked,
}

// metadataIPs are the well-known metadata service addresses. Checked before
// the generic link-local rule so a metadata hit reports as ErrMetadataBlocked
// rather than the broader private-address error.
var metadataIPs = []net.IP{
	net.ParseIP("169.254.169.254"), // AWS, GCP, Azure, DigitalOcean, OpenStack
	net.ParseIP("169.254.170.2"),   // AWS ECS task metadata
	net.ParseIP("169.254.170.23"),  // AWS ECS task metadata v4
	net.ParseIP("169.254.169.253"), // Azure wire server
	net.ParseIP("fd00:ec2::254"),   // AWS IPv6 metadata
	net.ParseIP("100.100.100.200"), // Alibaba Cloud
	net.ParseIP("192.0.0.192"),     // Oracle Cloud
}

const dnsLookupTimeout = 5 * time.Second

// ValidateNavigationTarget rejects rawURL unless it is safe for the daemon's
// Chromium to fetch on a caller's behalf. "about:blank" is allowed: it is
// the page the daemon itself parks targets on and carries no request.
//
// Everything else must be http(s) to a public address. Loopback, private,
// link-local, unspecified, and metadata addresses are rejected whether they
// arrive as a hostname, a plain IP, or an obfuscated IP encoding; hostnames
// are resolved here and fail closed when resolution fails, since the browser
// would otherwise resolve them on its own past this check.
func ValidateNavigationTarget(ctx context.Context, rawURL string) error {
	if rawURL == "about:blank" {
		return nil
	}
	if rawURL == "" {
		return ErrInvalidURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ErrInvalidURL
	}
	if !allowedSchemes[strings.ToLower(parsed.Scheme)] {
		return ErrBlockedScheme
	}

	hostname := strings.ToLower(parsed.Hostname())
	if blockErr, ok := hostDenylist[hostname]; ok {
		return blockErr
	}
	if isLocalhostName(hostname) {
		return ErrLocalhostBlocked
	}
	if err := checkIDN(hostname); err != nil {
		return err
	}

	if ip := parseHostIP(hostname); ip != nil {
		if err := checkIP(ip); err != nil {
			return fmt.Errorf("%s: %w", ip, err)
		}
		return nil
	}

	ips, err := resolveHost(ctx, hostname)
	if err != nil || len(ips) == 0 {
		return ErrDNSLookupFailed
	}
	for _, ip := range ips {
		if err := checkIP(ip); err != nil {
			return fmt.Errorf("%s resolves to %s: %w", hostname, ip, err)
		}
	}
	return nil
}

func resolveHost(ctx context.Context, hostname string) ([]net.IP, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, dnsLookupTimeout)
		defer cancel()
	}
	var resolver net.Resolver
	return resolver.LookupIP(ctx, "ip", hostname)
}

func isLocalhostName(hostname string) bool {
	switch hostname {
	case "localhost", "localhost.localdomain", "local", "ip6-localhost", "ip6-loopback":
		return true
	}
	return strings.HasSuffix(hostname, ".localhost") || strings.HasPrefix(hostname, "localhost.")
}

// checkIP rejects addresses the browser must not be pointed at. IPv4-mapped
// IPv6 forms (::ffff:127.0.0.1) are normalized first so they cannot hide an
// IPv4 address.
func checkIP(ip net.IP) error {
	if ip4 := ip.To4(); ip4 != nil {
		ip = ip4
	}
	for _, meta := range metadataIPs {
		if ip.Equal(meta) {
			log.Warn().Str("ip", ip.String()).Msg("security: blocked metadata navigation target")
			return ErrMetadataBlocked
		}
	}
	if ip.IsLoopback() {
		return ErrLocalhostBlocked
	}
	if ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return ErrPrivateIPBlocked
	}
	return nil
}

// parseHostIP parses hostname as an IP address, accepting the obfuscated
// encodings used to slip a loopback or private address past a string check:
// a single 32-bit decimal (2130706433), octal or hex octets (0177.0.0.1,
// 0x7f.0.0.1), and the shortened two- and three-part forms (127.1, 127.0.1).
// Returns nil when hostname is not an IP in any recognized encoding.
func parseHostIP(hostname string) net.IP {
	if ip := net.ParseIP(hostname); ip != nil {
		return ip
	}

	if n, err := strconv.ParseUint(hostname, 10, 32); err == nil {
		return net.IPv4(byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	}

	parts := strings.Split(hostname, ".")
	vals := make([]uint64, len(parts))
	for i, part := range parts {
		v, err := parseOctet(part)
		if err != nil {
			return nil
		}
		vals[i] = v
	}

	switch len(vals) {
	case 4:
		for _, v := range vals {
			if v > 255 {
				return nil
			}
		}
		return net.IPv4(byte(vals[0]), byte(vals[1]), byte(vals[2]), byte(vals[3]))
	case 3:
		// A.B.C with C spanning the last two octets. A C above 255 with a
		// non-zero low byte is ambiguous between encodings; refuse to guess.
		if vals[0] > 255 || vals[1] > 255 || vals[2] > 0xFFFF {
			return nil
		}
		if vals[2] > 255 && vals[2]&0xFF != 0 {
			return nil
		}
		return net.IPv4(byte(vals[0]), byte(vals[1]), byte(vals[2]>>8), byte(vals[2]))
	case 2:
		// A.B with B spanning the last three octets (127.1 -> 127.0.0.1).
		if vals[0] > 255 || vals[1] > 0xFFFFFF {
			return nil
		}
		return net.IPv4(byte(vals[0]), byte(vals[1]>>16), byte(vals[1]>>8), byte(vals[1]))
	}
	return nil
}

func parseOctet(s string) (uint64, error) {
	switch {
	case s == "":
		return 0, errors.New("empty octet")
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		return strconv.ParseUint(s[2:], 16, 64)
	case len(s) > 1 && s[0] == '0':
		return strconv.ParseUint(s[1:], 8, 64)
	default:
		return strconv.ParseUint(s, 10, 64)
	}
}

// idnaStrict validates internationalized hostnames under IDNA 2008, so a
// lookalike-Unicode hostname cannot masquerade as a different site in logs
// and allowlists downstream of the daemon.
var idnaStrict = idna.New(
	idna.ValidateLabels(true),
	idna.VerifyDNSLength(true),
	idna.StrictDomainName(true),
)

func checkIDN(hostname string) error {
	ascii := true
	for i := 0; i < len(hostname); i++ {
		if hostname[i] > 127 {
			ascii = false
			break
		}
	}
	if ascii {
		return nil
	}

	punycode, err := idnaStrict.ToASCII(hostname)
	if err != nil {
		log.Warn().Str("hostname", hostname).Err(err).Msg("security: rejecting malformed IDN navigation target")
		return ErrInvalidIDN
	}
	log.Debug().Str("hostname", hostname).Str("punycode", punycode).Msg("security: IDN navigation target")
	return nil
}
