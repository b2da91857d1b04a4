package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestMailRetryDelay(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		attempt   int
		wantWait  time.Duration
		wantRetry bool
	}{
		{"лимит с Retry-After", &resend.RateLimitError{RetryAfter: "5"}, 1, 5 * time.Second, true},
		{"Retry-After ограничен сверху", &resend.RateLimitError{RetryAfter: "600"}, 1, mailMaxRetryAfter, true},
		{"лимит без Retry-After", &resend.RateLimitError{}, 2, 2 * time.Second, true},
		{"сетевой тайм-аут", timeoutErr{}, 2, time.Second, true},
		{"прочие ошибки не повторяются", errors.New("invalid from"), 1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wait, retry := mailRetryDelay(tt.err, tt.attempt)
			assert.Equal(t, tt.wantRetry, retry)
			assert.Equal(t, tt.wantWait, wait)
		})
	}
}

func TestNewResendMailer_RequiresKeyAndSender(t *testing.T) {
	_, err := NewResendMailer("", "quiz@example.com")
	assert.Error(t, err)
	_, err = NewResendMailer("re_key", "")
	assert.Error(t, err)

	m, err := NewResendMailer("re_key", "quiz@example.com")
	require.NoError(t, err)
	assert.Error(t, m.Send(context.Background(), Mail{}), "Письмо без получателей не отправляется")
}
