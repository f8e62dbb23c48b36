package security

import (
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// SSRFGuardService は外部呼び出し先のSSRF防止機能のインターフェースを定義する。
// JWKS取得と地図APIのHTTPクライアントに使用される。
type SSRFGuardService interface {
	// NewSafeClient はhttps:443だけに接続できるHTTPクライアントを生成する。
	// プライベートIP、ループバック、リンクローカル、メタデータIPへの接続は
	// DNS解決後のアドレスで拒否する。
	NewSafeClient(timeout time.Duration) *http.Client

	// ValidateEndpoint は設定された外部エンドポイントURLをDNS解決なしで静的に検証する。
	ValidateEndpoint(name, rawURL string) error
}

// blockedPrefixes は静的検証で拒否するアドレス範囲。
var blockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("127.0.0.0/8"),
	// クラウドメタデータIP (169.254.169.254) を含む
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

// ErrNotPublicHTTPS は公開httpsURLでない場合のエラー。
var ErrNotPublicHTTPS = errors.New("url must be a public https URL")

type ssrfGuard struct{}

// NewSSRFGuard はSSRFGuardServiceの新しいインスタンスを生成する。
func NewSSRFGuard() *ssrfGuard {
	return &ssrfGuard{}
}

// NewSafeClient はSSRF防止機能付きのHTTPクライアントを生成する。
// safeurlはnet.DialerのControlフックで接続先IPを検証するため、
// DNS再バインディングにも対応している。
func (g *ssrfGuard) NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("https").
		SetAllowedPorts(443).
		Build()

	return safeurl.Client(config).Client
}

// ValidateEndpoint は起動時に外部エンドポイント設定を検証する。
// nameはエラーメッセージに含める設定名（例: "AUTH_JWKS_URL"）。
func (g *ssrfGuard) ValidateEndpoint(name, rawURL string) error {
	if err := checkPublicHTTPS(rawURL); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// ValidatePhotoURL は写真URLがhttpsの公開URLであることを検証する。
// 写真URLはクライアントがそのまま表示するため、取得はしない。
func ValidatePhotoURL(rawURL string) error {
	return checkPublicHTTPS(rawURL)
}

func checkPublicHTTPS(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("%w: empty", ErrNotPublicHTTPS)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotPublicHTTPS, err)
	}
	if !strings.EqualFold(u.Scheme, "https") {
		return fmt.Errorf("%w: scheme %q", ErrNotPublicHTTPS, u.Scheme)
	}
	if u.User != nil {
		return fmt.Errorf("%w: userinfo is not allowed", ErrNotPublicHTTPS)
	}

	host := u.Hostname()
	switch {
	case host == "":
		return fmt.Errorf("%w: empty host", ErrNotPublicHTTPS)
	case strings.EqualFold(host, "localhost"), strings.HasSuffix(strings.ToLower(host), ".localhost"):
		return fmt.Errorf("%w: host %s", ErrNotPublicHTTPS, host)
	}

	if addr, err := netip.ParseAddr(host); err == nil && isBlockedAddr(addr) {
		return fmt.Errorf("%w: blocked address %s", ErrNotPublicHTTPS, addr)
	}
	return nil
}

// isBlockedAddr はアドレスがブロック対象の範囲に含まれるかを返す。
func isBlockedAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	if addr.IsUnspecified() {
		return true
	}
	for _, p := range blockedPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
