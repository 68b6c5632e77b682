package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/resendlabs/resend-go"

	"userhistory/api/logger"
)

const orderCompletedTemplate = `<p>Order #{order_id} has been completed.</p>
{browsing_history}
{purchase_history}`

// Notifier emails staff the history of each completed order through Resend.
type Notifier struct {
	from string
	to   []string
	tags *Registry
	send func(*resend.SendEmailRequest) error
	log  *logger.Logger
}

// NewNotifier returns nil when apiKey or recipients are missing; a nil Notifier sends nothing.
func NewNotifier(apiKey, from, recipients string, tags *Registry, log *logger.Logger) *Notifier {
	var to []string
	for _, r := range strings.Split(recipients, ",") {
		if r = strings.TrimSpace(r); r != "" {
			to = append(to, r)
		}
	}
	if apiKey == "" || len(to) == 0 {
		return nil
	}

	client := resend.NewClient(apiKey)
	return &Notifier{
		from: from,
		to:   to,
		tags: tags,
		send: func(req *resend.SendEmailRequest) error {
			_, err := client.Emails.Send(req)
			return err
		},
		log: log.With("service", "Notifier"),
	}
}

// OrderCompleted sends the browsing and purchase history of orderID to staff.
func (n *Notifier) OrderCompleted(ctx context.Context, orderID int64) error {
	if n == nil {
		return nil
	}
	tmpl := strings.ReplaceAll(orderCompletedTemplate, "{order_id}", fmt.Sprint(orderID))
	body, err := n.tags.Render(ctx, tmpl, orderID)
	if err != nil {
		return err
	}

	request := &resend.SendEmailRequest{
		From:    n.from,
		To:      n.to,
		Subject: fmt.Sprintf("Order #%d completed", orderID),
		Html:    body,
	}
	if err := n.send(request); err != nil {
		return fmt.Errorf("failed to send order notification: %w", err)
	}
	n.log.Info("Order notification sent", "order_id", orderID, "recipients", len(n.to))
	return nil
}
