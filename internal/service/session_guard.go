package service

import (
	"context"
	"crypto/subtle"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/repository"
	"edu_platform_backend/internal/util"
	"edu_platform_backend/pkg/monitoring"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SessionRejectReason 会话被拒绝的原因
type SessionRejectReason string

const (
	ReasonNoCredential      SessionRejectReason = "no_credential"
	ReasonInvalidCredential SessionRejectReason = "invalid_credential"
	ReasonSuperseded        SessionRejectReason = "session_superseded"
	ReasonBlocked           SessionRejectReason = "account_blocked"
	ReasonUnverifiable      SessionRejectReason = "session_unverifiable"
)

var rejectMessages = map[SessionRejectReason]string{
	ReasonNoCredential:      "authentication required",
	ReasonInvalidCredential: "invalid or expired credential",
	ReasonSuperseded:        "session expired, logged in elsewhere",
	ReasonBlocked:           "account is blocked",
	ReasonUnverifiable:      "session could not be verified",
}

// SessionOutcome 只有 Authorized 为 true 时请求才能继续
type SessionOutcome struct {
	Authorized bool
	Reason     SessionRejectReason
	Claims     *util.Claims
}

func authorized(claims *util.Claims) SessionOutcome {
	return SessionOutcome{Authorized: true, Claims: claims}
}

func rejected(reason SessionRejectReason) SessionOutcome {
	return SessionOutcome{Reason: reason}
}

func (o SessionOutcome) Message() string {
	if o.Authorized {
		return ""
	}
	if msg, ok := rejectMessages[o.Reason]; ok {
		return msg
	}
	return rejectMessages[ReasonUnverifiable]
}

type sessionStateReader interface {
	Current(ctx context.Context, kind model.AccountType, id uint) (*repository.SessionState, error)
}

// SessionGuard 保证每个账户同一时刻只有最近一次登录签发的凭证有效
type SessionGuard struct {
	sessions sessionStateReader
	secret   string
	logger   *zap.Logger
}

func NewSessionGuard(sessions sessionStateReader, secret string, logger *zap.Logger) *SessionGuard {
	return &SessionGuard{sessions: sessions, secret: secret, logger: logger}
}

// Check 校验签名与有效期后比对账户上的会话标记。
// 任何无法确认的情况都返回拒绝。
func (g *SessionGuard) Check(ctx context.Context, rawToken string) SessionOutcome {
	outcome := g.check(ctx, rawToken)

	if outcome.Authorized {
		monitoring.SessionChecks.WithLabelValues("authorized", "").Inc()
	} else {
		monitoring.SessionChecks.WithLabelValues("rejected", string(outcome.Reason)).Inc()
	}
	return outcome
}

func (g *SessionGuard) check(ctx context.Context, rawToken string) SessionOutcome {
	if rawToken == "" {
		return rejected(ReasonNoCredential)
	}

	claims, err := util.ParseJWT(rawToken, g.secret)
	if err != nil {
		return rejected(ReasonInvalidCredential)
	}

	state, err := g.sessions.Current(ctx, claims.AccountType, claims.AccountID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return rejected(ReasonInvalidCredential)
	}
	if err != nil {
		g.logger.Error("Session lookup failed",
			zap.Uint("accountId", claims.AccountID),
			zap.String("accountType", string(claims.AccountType)),
			zap.Error(err))
		return rejected(ReasonUnverifiable)
	}

	if state.Blocked || !state.IsActive {
		return rejected(ReasonBlocked)
	}

	if !markersEqual(state.ActiveSessionToken, claims.SessionID) {
		g.logger.Debug("Superseded session presented",
			zap.Uint("accountId", claims.AccountID),
			zap.String("accountType", string(claims.AccountType)))
		return rejected(ReasonSuperseded)
	}

	return authorized(claims)
}

func markersEqual(stored *string, presented string) bool {
	if stored == nil || *stored == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*stored), []byte(presented)) == 1
}
