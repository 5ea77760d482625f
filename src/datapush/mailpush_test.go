package datapush

import (
	"crypto/tls"
	"errors"
	"net/smtp"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VocDashboard/src/config"
	"VocDashboard/src/processor"
)

func newPusher(to ...string) *MailPusher {
	cfg, _ := config.Default()
	cfg.SendEmail.Server = "smtp.example.com"
	cfg.SendEmail.Username = "bot@example.com"
	cfg.SendEmail.Password = "secret"
	cfg.SendEmail.To = to
	return NewMailPusher(cfg)
}

func sampleSummary() processor.Summary {
	rs := processor.NewRecordSet([]processor.Record{
		{Brand: "A", Category: "상의", SKU: "SKU-1", Result: "FAIL", VOCType: "사이즈"},
		{Brand: "A", Category: "상의", SKU: "SKU-1", Result: "PASS", VOCType: "사이즈"},
	})
	return processor.Summarize(rs)
}

func TestBuildMessage(t *testing.T) {
	report := filepath.Join(t.TempDir(), "voc_report.xlsx")
	require.NoError(t, os.WriteFile(report, []byte("xlsx"), 0644))

	e, err := newPusher("qa@example.com").BuildMessage(sampleSummary(), report)
	require.NoError(t, err)

	assert.Equal(t, []string{"qa@example.com"}, e.To)
	assert.Contains(t, e.Subject, "VOC 검수 리포트")
	assert.Contains(t, string(e.Text), "VOC 총 건수: 2")
	assert.Contains(t, string(e.Text), "검수 실패율: 50.00%")
	assert.Contains(t, string(e.Text), "1. SKU-1 (2)")
	require.Len(t, e.Attachments, 1)
	assert.Equal(t, "voc_report.xlsx", e.Attachments[0].Filename)
}

func TestBuildMessageErrors(t *testing.T) {
	_, err := newPusher().BuildMessage(sampleSummary(), "")
	assert.Error(t, err, "没有收件人")

	_, err = newPusher("qa@example.com").BuildMessage(sampleSummary(), filepath.Join(t.TempDir(), "absent.xlsx"))
	assert.Error(t, err)
}

func TestPushRetries(t *testing.T) {
	RetryInterval = time.Millisecond
	defer func() { RetryInterval = 2 * time.Second }()

	var calls int
	var gotAddr, gotServerName string
	pusher := newPusher("qa@example.com").WithSender(func(e *email.Email, addr string, auth smtp.Auth, tlsCfg *tls.Config) error {
		calls++
		gotAddr = addr
		gotServerName = tlsCfg.ServerName
		if calls < 2 {
			return errors.New("temporary failure")
		}
		return nil
	})

	require.NoError(t, pusher.Push(sampleSummary(), ""))
	assert.Equal(t, 2, calls)
	assert.Equal(t, "smtp.example.com:465", gotAddr)
	assert.Equal(t, "smtp.example.com", gotServerName)
}

func TestPushGivesUp(t *testing.T) {
	RetryInterval = time.Millisecond
	defer func() { RetryInterval = 2 * time.Second }()

	var calls int
	pusher := newPusher("qa@example.com").WithSender(func(*email.Email, string, smtp.Auth, *tls.Config) error {
		calls++
		return errors.New("refused")
	})

	err := pusher.Push(sampleSummary(), "")
	require.Error(t, err)
	assert.Equal(t, RetryTimes, calls)
}
