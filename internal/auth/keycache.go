package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"golang.org/x/sync/singleflight"
)

const (
	// maxJWKSBodySize はJWKSレスポンスの最大サイズ。
	maxJWKSBodySize = 1 << 20
	jwksFetchTimeout = 10 * time.Second
)

// ErrUnknownKey はJWKSに該当するkidの鍵が存在しないことを示す。
var ErrUnknownKey = errors.New("signing key not found")

// KeySet はkidから検証用公開鍵を解決する。
type KeySet interface {
	Key(ctx context.Context, kid string) (any, error)
}

// KeyCache はJWKSエンドポイントから取得した公開鍵をTTL付きで保持する。
// 未知のkidによる再取得はminRefresh間隔に1回までに制限し、
// 同時に発生した再取得は1回のリクエストにまとめる。
type KeyCache struct {
	url        string
	client     *http.Client
	ttl        time.Duration
	minRefresh time.Duration
	now        func() time.Time

	group singleflight.Group

	mu          sync.RWMutex
	keys        keyfunc.Keyfunc
	fetchedAt   time.Time
	lastAttempt time.Time
}

// NewKeyCache はKeyCacheを生成する。clientにはSSRF対策済みのクライアントを渡す。
func NewKeyCache(jwksURL string, client *http.Client, ttl, minRefresh time.Duration) *KeyCache {
	if client == nil {
		client = http.DefaultClient
	}
	return &KeyCache{
		url:        jwksURL,
		client:     client,
		ttl:        ttl,
		minRefresh: minRefresh,
		now:        time.Now,
	}
}

// Key はkidに対応する公開鍵を返す。
// キャッシュが期限切れ、またはkidが見つからない場合はJWKSを再取得する。
// 再取得中もロックは保持しないため、キャッシュ済みの鍵の参照は待たされない。
func (c *KeyCache) Key(ctx context.Context, kid string) (any, error) {
	c.mu.RLock()
	keys, fetchedAt := c.keys, c.fetchedAt
	c.mu.RUnlock()

	key, found := lookupKey(ctx, keys, kid)
	if found && c.now().Sub(fetchedAt) < c.ttl {
		return key, nil
	}

	v, err, _ := c.group.Do(c.url, func() (any, error) {
		return c.refresh(ctx)
	})
	if err != nil {
		if found {
			// 取得失敗時は期限切れの鍵で継続する
			slog.Warn("failed to refresh JWKS, using cached keys", slog.String("error", err.Error()))
			return key, nil
		}
		return nil, err
	}

	refreshed, _ := v.(keyfunc.Keyfunc)
	if key, found = lookupKey(ctx, refreshed, kid); !found {
		return nil, fmt.Errorf("%w: kid=%q", ErrUnknownKey, kid)
	}
	return key, nil
}

// refresh はJWKSを再取得する。直近の試行からminRefresh未満の場合は取得せず現在の鍵セットを返す。
func (c *KeyCache) refresh(ctx context.Context) (keyfunc.Keyfunc, error) {
	c.mu.RLock()
	keys, last := c.keys, c.lastAttempt
	c.mu.RUnlock()

	now := c.now()
	if !last.IsZero() && now.Sub(last) < c.minRefresh {
		if keys == nil {
			return nil, fmt.Errorf("%w: JWKS unavailable", ErrUnknownKey)
		}
		return keys, nil
	}

	// 呼び出し元のキャンセルが相乗りした他のリクエストに波及しないよう切り離す
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), jwksFetchTimeout)
	defer cancel()
	fetched, err := c.fetch(fetchCtx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastAttempt = now
	if err != nil {
		return nil, err
	}
	c.keys = fetched
	c.fetchedAt = now
	return fetched, nil
}

func (c *KeyCache) fetch(ctx context.Context) (keyfunc.Keyfunc, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("JWKS request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS fetch failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJWKSBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read JWKS response: %w", err)
	}

	keys, err := keyfunc.NewJWKSetJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWKS response: %w", err)
	}
	return keys, nil
}

// lookupKey は署名用途の鍵のみを返す。
func lookupKey(ctx context.Context, keys keyfunc.Keyfunc, kid string) (any, bool) {
	if keys == nil {
		return nil, false
	}
	jwk, err := keys.Storage().KeyRead(ctx, kid)
	if err != nil {
		return nil, false
	}
	if use := jwk.Marshal().USE; use != "" && use != jwkset.UseSig {
		return nil, false
	}
	return jwk.Key(), true
}

// compile-time interface check
var _ KeySet = (*KeyCache)(nil)
