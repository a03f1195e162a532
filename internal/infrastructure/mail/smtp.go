package mail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/bongocat/webapp/internal/core/domain"
)

var ErrHeaderInjection = errors.New("mail: header contains line break")

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Configured reports whether enough is set to talk to a real server.
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.Username != "" && c.Password != ""
}

// SMTPMailer delivers through an SMTP relay with PLAIN auth, upgrading to
// STARTTLS when the server offers it. Every Send dials a fresh connection
// whose whole conversation is bounded by the caller's context.
type SMTPMailer struct {
	cfg  SMTPConfig
	opts []gomail.Option
	now  func() time.Time
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &SMTPMailer{
		cfg: cfg,
		opts: []gomail.Option{
			gomail.WithPort(cfg.Port),
			gomail.WithTLSPolicy(gomail.TLSOpportunistic),
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		},
		now: time.Now,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	message, err := m.compose(msg)
	if err != nil {
		return err
	}

	opts := append(append([]gomail.Option{}, m.opts...), gomail.WithDialContextFunc(boundedDial(ctx)))
	client, err := gomail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, message); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// boundedDial ties the connection to ctx for the whole SMTP conversation.
// go-mail only applies its context to the dial, and a relay that accepts
// and then stays silent would otherwise hold the caller forever.
func boundedDial(ctx context.Context) gomail.DialContextFunc {
	return func(dialCtx context.Context, network, addr string) (net.Conn, error) {
		var d net.Dialer
		conn, err := d.DialContext(dialCtx, network, addr)
		if err != nil {
			return nil, err
		}
		if deadline, ok := ctx.Deadline(); ok {
			_ = conn.SetDeadline(deadline)
		}
		context.AfterFunc(ctx, func() { _ = conn.Close() })
		return conn, nil
	}
}

func (m *SMTPMailer) compose(msg domain.Message) (*gomail.Msg, error) {
	for _, h := range []string{m.cfg.From, msg.To, msg.Subject} {
		if strings.ContainsAny(h, "\r\n") {
			return nil, ErrHeaderInjection
		}
	}

	message := gomail.NewMsg(gomail.WithNoDefaultUserAgent())
	if err := message.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := message.To(msg.To); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	message.Subject(msg.Subject)
	message.SetDateWithValue(m.now())
	message.SetBodyString(gomail.TypeTextPlain, msg.Body)
	return message, nil
}
