package bitable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"base-builder-api/internal/config"
	redisclient "base-builder-api/internal/infrastructure/persistence/redis"
	apperrors "base-builder-api/pkg/errors"
	"base-builder-api/pkg/logger"
)

// TokenSource 获取租户访问凭证。
// 认证失败意味着配置错误而非瞬时负载，因此不做任何重试。
// 凭证可选地缓存在 Redis 中，TTL 取远端 expire 减去安全余量；
// singleflight 保证并发请求只触发一次远端刷新。
type TokenSource struct {
	baseURL    string
	appID      string
	appSecret  string
	httpClient *http.Client

	cache      *redisclient.Client
	cacheSlack time.Duration
	group      singleflight.Group
}

// NewTokenSource 创建凭证源，cache 为 nil 时每次直连远端
func NewTokenSource(cfg *config.BitableConfig, cache *redisclient.Client, cacheSlack time.Duration) *TokenSource {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TokenSource{
		baseURL:    cfg.BaseURL,
		appID:      cfg.AppID,
		appSecret:  cfg.AppSecret,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
		cacheSlack: cacheSlack,
	}
}

func (s *TokenSource) cacheKey() string {
	return "bitable:tenant_token:" + s.appID
}

// TenantAccessToken 返回可用的租户访问凭证
func (s *TokenSource) TenantAccessToken(ctx context.Context) (string, error) {
	if strings.TrimSpace(s.appID) == "" || strings.TrimSpace(s.appSecret) == "" {
		return "", apperrors.New(apperrors.CodeConfigMissing, "workspace app credentials not configured")
	}

	if s.cache != nil {
		if token, err := s.cache.Get(ctx, s.cacheKey()); err == nil && token != "" {
			return token, nil
		} else if err != nil && !redisclient.IsNil(err) {
			// 缓存故障降级为直连，不影响本次运行
			logger.Warn(ctx, "token cache unavailable, falling back to direct fetch", "error", err.Error())
		}
	}

	v, err, _ := s.group.Do(s.cacheKey(), func() (interface{}, error) {
		return s.fetch(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// fetch 直接向远端换取凭证并回填缓存
func (s *TokenSource) fetch(ctx context.Context) (string, error) {
	payload, err := json.Marshal(tenantTokenRequest{AppID: s.appID, AppSecret: s.appSecret})
	if err != nil {
		return "", fmt.Errorf("failed to marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/auth/v3/tenant_access_token/internal", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeAuthFailed, "token endpoint unreachable")
	}
	defer resp.Body.Close()

	var result tenantTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeAuthFailed, "unparseable token response")
	}

	if result.Code != codeOK || result.TenantAccessToken == "" {
		return "", apperrors.New(apperrors.CodeAuthFailed, "workspace rejected app credentials").
			WithDetail(fmt.Sprintf("code=%d msg=%s", result.Code, result.Msg))
	}

	if s.cache != nil {
		ttl := time.Duration(result.Expire)*time.Second - s.cacheSlack
		if ttl > 0 {
			if err := s.cache.Set(ctx, s.cacheKey(), result.TenantAccessToken, ttl); err != nil {
				logger.Warn(ctx, "failed to cache tenant token", "error", err.Error())
			}
		}
	}

	return result.TenantAccessToken, nil
}
