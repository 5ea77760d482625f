package datapush

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jordan-wright/email"

	"VocDashboard/src/config"
	"VocDashboard/src/processor"
)

const (
	DefaultSMTPPort = "465" // 默认 SSL 端口
	RetryTimes      = 3
)

var RetryInterval = 2 * time.Second

// SendFunc 实际发送邮件，测试时可替换
type SendFunc func(e *email.Email, addr string, auth smtp.Auth, tlsCfg *tls.Config) error

// MailPusher 将报表以附件形式推送给收件人
type MailPusher struct {
	server   string
	username string
	password string
	to       []string
	subject  string
	send     SendFunc
}

func NewMailPusher(c *config.Config) *MailPusher {
	return &MailPusher{
		server:   c.SendEmail.Server,
		username: c.SendEmail.Username,
		password: c.SendEmail.Password,
		to:       c.SendEmail.To,
		subject:  c.SendEmail.Subject,
		send: func(e *email.Email, addr string, auth smtp.Auth, tlsCfg *tls.Config) error {
			return e.SendWithTLS(addr, auth, tlsCfg)
		},
	}
}

// WithSender 替换发送函数
func (p *MailPusher) WithSender(send SendFunc) *MailPusher {
	p.send = send
	return p
}

// BuildMessage 生成带摘要正文和报表附件的邮件
func (p *MailPusher) BuildMessage(sum processor.Summary, reportPath string) (*email.Email, error) {
	if len(p.to) == 0 {
		return nil, fmt.Errorf("未配置收件人")
	}

	e := email.NewEmail()
	e.From = fmt.Sprintf("VOC Dashboard <%s>", p.username)
	e.To = p.to
	e.Subject = fmt.Sprintf("%s %s", p.subject, time.Now().Format("2006-01-02"))
	e.Text = []byte(summaryText(sum))

	if reportPath != "" {
		if _, err := os.Stat(reportPath); err != nil {
			return nil, fmt.Errorf("附件文件不存在: %s", reportPath)
		}
		if _, err := e.AttachFile(reportPath); err != nil {
			return nil, fmt.Errorf("附件添加失败: %w", err)
		}
	}
	return e, nil
}

// Push 发送报表邮件，失败时重试
func (p *MailPusher) Push(sum processor.Summary, reportPath string) error {
	e, err := p.BuildMessage(sum, reportPath)
	if err != nil {
		return err
	}

	// 确保服务器地址包含端口
	addr := p.server
	if !strings.Contains(addr, ":") {
		addr += ":" + DefaultSMTPPort
	}
	host := strings.Split(addr, ":")[0]
	auth := smtp.PlainAuth("", p.username, p.password, host)

	err = retry(func() error {
		return p.send(e, addr, auth, &tls.Config{ServerName: host})
	}, RetryTimes, RetryInterval)
	if err != nil {
		return fmt.Errorf("邮件发送失败: %w (Server: %s, 附件: %s)", err, addr, filepath.Base(reportPath))
	}
	return nil
}

func summaryText(sum processor.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "VOC 총 건수: %d\n", sum.Total)
	fmt.Fprintf(&b, "검수 실패율: %s\n", sum.FailureRate)
	fmt.Fprintf(&b, "가장 많이 발생한 VOC 유형: %s\n", sum.DominantType)

	if len(sum.TopSKUs) > 0 {
		b.WriteString("\nSKU별 VOC 건수\n")
		for i, c := range sum.TopSKUs {
			fmt.Fprintf(&b, "%d. %s (%d)\n", i+1, c.Key, c.Count)
		}
	}
	if len(sum.TopBrandsFail) > 0 {
		b.WriteString("\n브랜드별 검수 실패율\n")
		for i, r := range sum.TopBrandsFail {
			fmt.Fprintf(&b, "%d. %s %.2f%% (%d/%d)\n", i+1, r.Brand, r.Rate*100, r.Fails, r.Total)
		}
	}
	return b.String()
}

// 重试函数
func retry(fn func() error, times int, interval time.Duration) error {
	var err error
	for i := 0; i < times; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < times-1 {
			time.Sleep(interval)
		}
	}
	return fmt.Errorf("重试 %d 次后失败: %w", times, err)
}
