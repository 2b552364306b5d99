package service

import (
	"context"
	"edu_platform_backend/internal/config"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// EmailMessage 一封待发送的邮件
type EmailMessage struct {
	ToName      string
	ToAddress   string
	Subject     string
	TextContent string
	HTMLContent string
}

// Mailer 邮件发送接口
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// SendgridMailer 通过 SendGrid v3 API 发送
type SendgridMailer struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
	host       string
}

func NewSendgridMailer(cfg config.EmailConfig) *SendgridMailer {
	return &SendgridMailer{
		key:        cfg.SendgridAPIKey,
		from:       sgmail.NewEmail(cfg.FromName, cfg.FromAddress),
		subjPrefix: "[" + cfg.FromName + "] ",
		host:       "https://api.sendgrid.com",
	}
}

func (m *SendgridMailer) Send(ctx context.Context, msg EmailMessage) error {
	p := sgmail.NewPersonalization()
	p.Subject = m.subjPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToAddress))

	mail := sgmail.NewV3Mail()
	mail.SetFrom(m.from)
	mail.AddPersonalizations(p)
	mail.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	if msg.HTMLContent != "" {
		mail.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}

	req := sendgrid.GetRequest(m.key, "/v3/mail/send", m.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(mail)

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return err
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid responded %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

// LogMailer 未配置 SendGrid 时把邮件写进日志，便于本地开发
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg EmailMessage) error {
	m.logger.Info("Email (not sent, no provider configured)",
		zap.String("to", msg.ToAddress),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.TextContent))
	return nil
}

func NewMailer(cfg config.EmailConfig, logger *zap.Logger) Mailer {
	if cfg.SendgridAPIKey == "" || cfg.FromAddress == "" {
		return NewLogMailer(logger)
	}
	return NewSendgridMailer(cfg)
}
