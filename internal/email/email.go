// internal/email/email.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"text/template"
	"time"

	"pixelverk/internal/cart"
	"pixelverk/internal/logger"
)

const (
	defaultAlertRecipient = "hej@pixelverk.se"
	defaultAlertSender    = "butik@pixelverk.se"
	defaultSendmailPath   = "/usr/sbin/sendmail"
)

// Config holds email configuration
type Config struct {
	AlertRecipient string
	AlertSender    string
	SendmailPath   string
	Enabled        bool
	MockMode       bool // log messages instead of sending them
	LogEmails      bool
	TimeZone       *time.Location
}

// Sender delivers one message. The default runs sendmail.
type Sender func(ctx context.Context, to, from, subject, body string) error

// Notifier tells the shop owner about completed orders.
type Notifier struct {
	config Config
	send   Sender
	tmpl   *template.Template
}

var orderTemplate = `Subject: New order {{.OrderNumber}} ({{.TotalItems}} items, {{.TotalPrice}} kr)

A new order was placed {{.PlacedAt.Format "2 January 2006 15:04"}}.

Order number: {{.OrderNumber}}
{{range .Items}}  • {{.Quantity}} × {{.Name}} ({{.Category}}/{{.ID}}) à {{.Price}}
{{end}}
Total: {{.TotalPrice}} kr for {{.TotalItems}} item(s)
`

// NewNotifier prepares a Notifier. A nil sender uses sendmail, or the log
// when MockMode is set.
func NewNotifier(config Config, send Sender) (*Notifier, error) {
	if config.AlertRecipient == "" {
		config.AlertRecipient = defaultAlertRecipient
	}
	if config.AlertSender == "" {
		config.AlertSender = defaultAlertSender
	}
	if config.SendmailPath == "" {
		config.SendmailPath = defaultSendmailPath
	}
	if config.TimeZone == nil {
		config.TimeZone = time.Local
	}

	tmpl, err := template.New("order").Parse(orderTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse order template: %w", err)
	}

	n := &Notifier{config: config, send: send, tmpl: tmpl}
	if n.send == nil {
		if config.MockMode {
			n.send = logMail
		} else {
			n.send = n.sendmail
		}
	}
	return n, nil
}

type orderData struct {
	cart.Order
	PlacedAt time.Time
}

// NotifyOrder mails the order summary to the shop owner.
func (n *Notifier) NotifyOrder(ctx context.Context, order cart.Order, placedAt time.Time) error {
	if !n.config.Enabled {
		logger.LogInfo("Order emails disabled, skipping notification for %s", order.OrderNumber)
		return nil
	}

	subject, body, err := n.render(orderData{Order: order, PlacedAt: placedAt.In(n.config.TimeZone)})
	if err != nil {
		return err
	}

	if n.config.LogEmails {
		logger.LogInfo("Sending order notification for %s to %s", order.OrderNumber, n.config.AlertRecipient)
	}
	if err := n.send(ctx, n.config.AlertRecipient, n.config.AlertSender, subject, body); err != nil {
		return fmt.Errorf("failed to send order notification: %w", err)
	}
	return nil
}

// render splits the template output into subject and body.
func (n *Notifier) render(data orderData) (string, string, error) {
	var buf bytes.Buffer
	if err := n.tmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute order template: %w", err)
	}

	lines := strings.Split(buf.String(), "\n")
	if len(lines) < 2 || !strings.HasPrefix(lines[0], "Subject: ") {
		return "", "", fmt.Errorf("invalid template format: missing subject line")
	}
	subject := strings.TrimPrefix(lines[0], "Subject: ")
	body := strings.Join(lines[2:], "\n") // skip subject and blank line
	return subject, body, nil
}

// logMail writes the message to the log instead of sending it
func logMail(ctx context.Context, to, from, subject, body string) error {
	logger.LogInfo("========== MOCK EMAIL ==========")
	logger.LogInfo("To: %s", to)
	logger.LogInfo("From: %s", from)
	logger.LogInfo("Subject: %s", subject)
	for _, line := range strings.Split(body, "\n") {
		logger.LogInfo("   %s", line)
	}
	logger.LogInfo("================================")
	return nil
}

func (n *Notifier) sendmail(ctx context.Context, to, from, subject, body string) error {
	headers := []string{
		fmt.Sprintf("From: %s", from),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
	}
	message := strings.Join(headers, "\r\n") + body

	cmd := exec.CommandContext(ctx, n.config.SendmailPath, "-t")
	cmd.Stdin = strings.NewReader(message)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("sendmail command failed: %w", err)
	}
	return nil
}
