// Package security は外部通信と利用者入力に対する防御機能を提供する。
package security

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// OutboundGuard は書籍検索など外部APIへの通信を制限する。
// 許可するのは http/https と 80/443 番ポートのみ。
type OutboundGuard struct {
	schemes []string
	ports   []int
}

// NewOutboundGuard はOutboundGuardを生成する。
func NewOutboundGuard() *OutboundGuard {
	return &OutboundGuard{
		schemes: []string{"http", "https"},
		ports:   []int{80, 443},
	}
}

// blockedPrefixes は設定値の静的検証で拒否するアドレス範囲。
// 実際の接続時はsafeurlがDNS解決後のIPを検証する。
var blockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fe80::/10"),
	netip.MustParsePrefix("fc00::/7"),
}

// NewSafeClient はプライベート・ループバック・メタデータIPへの接続を
// Dialer段階で拒否するHTTPクライアントを返す。
func (g *OutboundGuard) NewSafeClient(timeout time.Duration) *http.Client {
	cfg := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(g.schemes...).
		SetAllowedPorts(g.ports...).
		Build()

	return safeurl.Client(cfg).Client
}

// ValidateEndpoint は設定されたエンドポイントURLを起動時に検証する。
// DNS解決は行わない。
func (g *OutboundGuard) ValidateEndpoint(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty endpoint")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}

	if !g.schemeAllowed(u.Scheme) {
		return fmt.Errorf("disallowed scheme: %q", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("endpoint has no host: %s", rawURL)
	}
	if strings.EqualFold(host, "localhost") {
		return fmt.Errorf("blocked host: %s", host)
	}

	if ip := net.ParseIP(host); ip != nil {
		addr, _ := netip.AddrFromSlice(ip)
		addr = addr.Unmap()
		for _, p := range blockedPrefixes {
			if p.Contains(addr) {
				return fmt.Errorf("blocked address: %s", addr)
			}
		}
	}
	return nil
}

func (g *OutboundGuard) schemeAllowed(scheme string) bool {
	for _, s := range g.schemes {
		if strings.EqualFold(s, scheme) {
			return true
		}
	}
	return false
}
