package util

import (
	"edu_platform_backend/internal/model"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const ContextClaimsKey = "claims"

type Claims struct {
	AccountID   uint              `json:"uid"`
	AccountType model.AccountType `json:"typ"`
	Role        model.UserRole    `json:"role"`
	Email       string            `json:"email"`
	SessionID   string            `json:"sid"`
	jwt.RegisteredClaims
}

// TokenSubject 签发 JWT 所需的身份信息
type TokenSubject struct {
	AccountID   uint
	AccountType model.AccountType
	Role        model.UserRole
	Email       string
}

func GenerateJWT(subject TokenSubject, sessionID, secret string, expiration time.Duration) (string, error) {
	now := time.Now()

	claims := &Claims{
		AccountID:   subject.AccountID,
		AccountType: subject.AccountType,
		Role:        subject.Role,
		Email:       subject.Email,
		SessionID:   sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseJWT(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		if claims.AccountID == 0 || claims.SessionID == "" {
			return nil, errors.New("token is missing identity claims")
		}
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

func GetUserFromContext(c *gin.Context) *Claims {
	user, exists := c.Get(ContextClaimsKey)
	if !exists {
		return nil
	}
	claims, ok := user.(*Claims)
	if !ok {
		return nil
	}
	return claims
}
