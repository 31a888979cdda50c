// Package notify 通过SMTP投递合规报告
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/wneessen/go-mail"

	"github.com/freedkr/paycheck/internal/config"
	"github.com/freedkr/paycheck/internal/model"
)

const (
	ReportSubject  = "Pay Stub Compliance Report"
	ReportBody     = "Attached is your pay stub compliance report."
	TestSubject    = "SMTP Test Email"
	TestBody       = "This is a test email from CheckMyChecks."
	AttachmentName = "paystub_report.pdf"
)

// Sender 发送已构建的邮件
type Sender interface {
	Send(ctx context.Context, msg *mail.Msg) error
}

// Notifier 报告邮件投递
type Notifier struct {
	config config.EmailConfig
	sender Sender
	logger *slog.Logger
}

// NewNotifier 创建投递器，默认使用SMTP发送
func NewNotifier(cfg config.EmailConfig, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		config: cfg,
		sender: &smtpSender{config: cfg},
		logger: logger,
	}
}

// WithSender 替换底层发送实现
func (n *Notifier) WithSender(s Sender) *Notifier {
	n.sender = s
	return n
}

// Send 将报告作为附件发送给收件人
func (n *Notifier) Send(ctx context.Context, to string, report *model.Report) error {
	if report == nil || report.Path == "" {
		return model.NewDeliveryError("no report to attach", nil)
	}

	msg, err := n.buildMessage(to, ReportSubject, ReportBody)
	if err != nil {
		return err
	}
	msg.AttachFile(report.Path,
		mail.WithFileName(AttachmentName),
		mail.WithFileContentType(mail.ContentType("application/pdf")),
	)

	return n.deliver(ctx, to, msg)
}

// SendTest 发送不带附件的测试邮件
func (n *Notifier) SendTest(ctx context.Context, to string) error {
	msg, err := n.buildMessage(to, TestSubject, TestBody)
	if err != nil {
		return err
	}
	return n.deliver(ctx, to, msg)
}

func (n *Notifier) buildMessage(to, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.config.Sender); err != nil {
		return nil, model.NewDeliveryError("invalid sender address", err)
	}
	if err := msg.To(to); err != nil {
		return nil, model.NewDeliveryError("invalid recipient address", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

func (n *Notifier) deliver(ctx context.Context, to string, msg *mail.Msg) error {
	if err := n.sender.Send(ctx, msg); err != nil {
		n.logger.Error("邮件发送失败", "to", to, "error", err)
		if errors.Is(err, context.DeadlineExceeded) {
			return model.NewTimeoutError("notify", "send", err)
		}
		return model.NewDeliveryError("send email", err)
	}
	n.logger.Info("邮件发送成功", "to", to)
	return nil
}

type smtpSender struct {
	config config.EmailConfig
}

func (s *smtpSender) Send(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(s.config.Host, s.options()...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// options 465端口走隐式TLS，其他端口强制STARTTLS
func (s *smtpSender) options() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.config.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.config.AuthUser),
		mail.WithPassword(s.config.Password),
	}
	// go-mail 不接受零超时，未配置时使用其默认值
	if s.config.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(s.config.Timeout))
	}
	if s.config.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	return opts
}
