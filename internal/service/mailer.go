package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

const (
	mailMaxAttempts   = 3
	mailMaxRetryAfter = 30 * time.Second
)

// Mail - письмо с итогами
type Mail struct {
	To          []string
	Subject     string
	Text        string
	Attachments []MailAttachment
}

type MailAttachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Mailer отправляет письма оператору
type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

// NoopMailer только пишет в лог
type NoopMailer struct{}

func (NoopMailer) Send(ctx context.Context, mail Mail) error {
	log.Printf("[Mailer] Отправка отключена: to=%s subject=%q вложений=%d",
		strings.Join(mail.To, ","), mail.Subject, len(mail.Attachments))
	return nil
}

// ResendMailer отправляет через Resend. Лимит запросов и тайм-ауты повторяются.
type ResendMailer struct {
	from   string
	client *resend.Client
}

func NewResendMailer(apiKey, from string) (*ResendMailer, error) {
	switch {
	case apiKey == "":
		return nil, errors.New("resend api key is required")
	case from == "":
		return nil, errors.New("report sender address is required")
	}
	return &ResendMailer{from: from, client: resend.NewClient(apiKey)}, nil
}

func (m *ResendMailer) Send(ctx context.Context, mail Mail) error {
	if len(mail.To) == 0 {
		return errors.New("mail has no recipients")
	}
	req := &resend.SendEmailRequest{
		From:    m.from,
		To:      mail.To,
		Subject: mail.Subject,
		Text:    mail.Text,
	}
	for _, a := range mail.Attachments {
		req.Attachments = append(req.Attachments, &resend.Attachment{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Content:     a.Content,
		})
	}

	for attempt := 1; ; attempt++ {
		_, err := m.client.Emails.SendWithContext(ctx, req)
		if err == nil {
			return nil
		}
		wait, retryable := mailRetryDelay(err, attempt)
		if !retryable || attempt >= mailMaxAttempts {
			return fmt.Errorf("resend send failed after %d attempt(s): %w", attempt, err)
		}
		log.Printf("[Mailer] Попытка %d не удалась, повтор через %s: %v", attempt, wait, err)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// mailRetryDelay решает, стоит ли повторять отправку, и через сколько.
// attempt начинается с 1.
func mailRetryDelay(err error, attempt int) (time.Duration, bool) {
	var limited *resend.RateLimitError
	if errors.As(err, &limited) {
		if sec, convErr := strconv.Atoi(strings.TrimSpace(limited.RetryAfter)); convErr == nil && sec > 0 {
			return min(time.Duration(sec)*time.Second, mailMaxRetryAfter), true
		}
		return time.Duration(attempt) * time.Second, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return time.Duration(attempt) * 500 * time.Millisecond, true
	}
	return 0, false
}
