// Package auth はBearerトークン（JWT）の検証と署名鍵の取得を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken はトークンの検証に失敗したことを示す。
var ErrInvalidToken = errors.New("invalid token")

// Verifier はトークンを検証し、ユーザーID（subクレーム）を返す。
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// VerifierConfig はJWT検証の設定。
type VerifierConfig struct {
	Keys   KeySet // RS256/ES256用。nilの場合は非対称鍵のトークンを拒否する
	Secret string // HS256用の共有シークレット。空の場合はHS256を拒否する
	Issuer string // 空の場合はissを検証しない
	Leeway time.Duration

	// InsecureDev は署名を検証せずsubだけを取り出す開発用モード。
	InsecureDev bool
}

// JWTVerifier はgolang-jwtを使用したVerifier実装。
type JWTVerifier struct {
	keys        KeySet
	secret      []byte
	parser      *jwt.Parser
	insecureDev bool
}

// NewJWTVerifier はJWTVerifierを生成する。
func NewJWTVerifier(cfg VerifierConfig) *JWTVerifier {
	var methods []string
	if cfg.Keys != nil {
		methods = append(methods, jwt.SigningMethodRS256.Alg(), jwt.SigningMethodES256.Alg())
	}
	if cfg.Secret != "" {
		methods = append(methods, jwt.SigningMethodHS256.Alg())
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(methods),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &JWTVerifier{
		keys:        cfg.Keys,
		secret:      []byte(cfg.Secret),
		parser:      jwt.NewParser(opts...),
		insecureDev: cfg.InsecureDev,
	}
}

// Verify はトークンを検証し、subクレームを返す。
func (v *JWTVerifier) Verify(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	claims := &jwt.RegisteredClaims{}
	if v.insecureDev {
		if _, _, err := v.parser.ParseUnverified(token, claims); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	} else {
		if _, err := v.parser.ParseWithClaims(token, claims, v.keyFunc(ctx)); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing sub claim", ErrInvalidToken)
	}
	return claims.Subject, nil
}

func (v *JWTVerifier) keyFunc(ctx context.Context) jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodHMAC:
			if len(v.secret) == 0 {
				return nil, errors.New("HS256 tokens are not accepted")
			}
			return v.secret, nil
		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
			if v.keys == nil {
				return nil, errors.New("no key set configured")
			}
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("missing kid header")
			}
			return v.keys.Key(ctx, kid)
		}
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}
}

// compile-time interface check
var _ Verifier = (*JWTVerifier)(nil)
