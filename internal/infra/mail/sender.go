package mail

import (
	"bytes"
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// Transport delivers one message and returns the id the delivery is
// known by.
type Transport interface {
	Deliver(ctx context.Context, env Envelope) (string, error)
}

type SMTPTransport struct {
	Host     string
	Port     int
	User     string
	Password string
}

func NewSMTPTransport(host string, port int, user, password string) *SMTPTransport {
	return &SMTPTransport{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
	}
}

func (t *SMTPTransport) Deliver(ctx context.Context, env Envelope) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", env.From, env.FromName)
	m.SetHeader("To", env.To)
	m.SetHeader("Subject", env.Subject)
	if env.ReplyTo != "" {
		m.SetHeader("Reply-To", env.ReplyTo)
	}
	if env.MessageID != "" {
		m.SetHeader("Message-ID", env.MessageID)
	}
	for k, v := range env.Headers {
		m.SetHeader(k, v)
	}

	if env.Text != "" {
		m.SetBody("text/plain", env.Text)
		if env.HTML != "" {
			m.AddAlternative("text/html", env.HTML)
		}
	} else {
		m.SetBody("text/html", env.HTML)
	}

	d := gomail.NewDialer(t.Host, t.Port, t.User, t.Password)
	if err := d.DialAndSend(m); err != nil {
		return "", fmt.Errorf("smtp send to %s: %w", env.To, err)
	}

	return env.MessageID, nil
}

// VerificationSender mails the double opt-in link to a new subscriber.
type VerificationSender struct {
	Transport   Transport
	FromAddress string
}

func NewVerificationSender(transport Transport, fromAddress string) *VerificationSender {
	return &VerificationSender{Transport: transport, FromAddress: fromAddress}
}

func (s *VerificationSender) SendVerification(ctx context.Context, to, ownerName, verifyURL string) error {
	var body bytes.Buffer
	err := verificationTpl.Execute(&body, verificationEmailData{
		OwnerName: ownerName,
		VerifyURL: verifyURL,
	})
	if err != nil {
		return fmt.Errorf("render verification email: %w", err)
	}

	_, err = s.Transport.Deliver(ctx, Envelope{
		FromName: "Tribe",
		From:     s.FromAddress,
		To:       to,
		Subject:  fmt.Sprintf("Confirm your subscription to %s's tribe", ownerName),
		HTML:     body.String(),
		Text:     fmt.Sprintf("Confirm your subscription to %s's tribe:\n%s\n", ownerName, verifyURL),
	})
	if err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}
