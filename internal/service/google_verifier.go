package service

import (
	"context"
	"edu_platform_backend/internal/config"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// GoogleIdentity 从 ID token 中取出的身份
type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

type googleTokenInfo struct {
	Aud           string `json:"aud"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Exp           string `json:"exp"`
}

// GoogleVerifier 调用 Google tokeninfo 接口校验 ID token
type GoogleVerifier struct {
	client   *resty.Client
	url      string
	clientID string
}

func NewGoogleVerifier(cfg config.GoogleConfig) *GoogleVerifier {
	client := resty.New().
		SetTimeout(5 * time.Second).
		SetRetryCount(1)
	return &GoogleVerifier{client: client, url: cfg.TokenInfoURL, clientID: cfg.ClientID}
}

func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (*GoogleIdentity, error) {
	if v.clientID == "" {
		return nil, errors.New("google sign-in is not configured")
	}

	var info googleTokenInfo
	resp, err := v.client.R().
		SetContext(ctx).
		SetQueryParam("id_token", idToken).
		SetResult(&info).
		Get(v.url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("tokeninfo responded %d", resp.StatusCode())
	}

	if info.Aud != v.clientID {
		return nil, errors.New("token audience mismatch")
	}
	if info.Sub == "" || info.Email == "" {
		return nil, errors.New("token is missing subject or email")
	}

	return &GoogleIdentity{
		Subject:       info.Sub,
		Email:         info.Email,
		EmailVerified: info.EmailVerified == "true",
		Name:          info.Name,
		Picture:       info.Picture,
	}, nil
}
