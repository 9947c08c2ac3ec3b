package notifications

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/artfolio/storefront-backend/pkg/circuitbreaker"
	"github.com/artfolio/storefront-backend/pkg/outbox/payloads"
	"github.com/artfolio/storefront-backend/pkg/sendgrid"
)

// EmailSender delivers one rendered message.
type EmailSender interface {
	Send(ctx context.Context, msg sendgrid.Message) error
}

// BreakerSender routes sends through a circuit breaker so an unhealthy mail
// provider fails fast and messages are redelivered later.
type BreakerSender struct {
	next    EmailSender
	breaker *circuitbreaker.Breaker
}

func NewBreakerSender(next EmailSender, breaker *circuitbreaker.Breaker) (*BreakerSender, error) {
	if next == nil {
		return nil, fmt.Errorf("email sender required")
	}
	if breaker == nil {
		return nil, fmt.Errorf("circuit breaker required")
	}
	return &BreakerSender{next: next, breaker: breaker}, nil
}

func (b *BreakerSender) Send(ctx context.Context, msg sendgrid.Message) error {
	return b.breaker.Do(ctx, func(ctx context.Context) error {
		return b.next.Send(ctx, msg)
	})
}

var orderConfirmedText = texttemplate.Must(texttemplate.New("order_confirmed_text").Parse(
	`Hi {{.Name}},

Thank you for your order {{.Ref}}.
Items: {{.ItemCount}}
Total: {{.Total}} {{.Currency}}
Payment method: {{.PaymentMethod}}

We will contact you when your artwork ships.
`))

var orderConfirmedHTML = htmltemplate.Must(htmltemplate.New("order_confirmed_html").Parse(
	`<p>Hi {{.Name}},</p>
<p>Thank you for your order <strong>{{.Ref}}</strong>.</p>
<ul>
<li>Items: {{.ItemCount}}</li>
<li>Total: {{.Total}} {{.Currency}}</li>
<li>Payment method: {{.PaymentMethod}}</li>
</ul>
<p>We will contact you when your artwork ships.</p>
`))

type orderConfirmedView struct {
	Name          string
	Ref           string
	ItemCount     int
	Total         string
	Currency      string
	PaymentMethod string
}

// RenderOrderConfirmed builds the confirmation e-mail for the event.
func RenderOrderConfirmed(event payloads.OrderConfirmedEvent) (sendgrid.Message, error) {
	name := strings.TrimSpace(event.CustomerName)
	if name == "" {
		name = "there"
	}
	view := orderConfirmedView{
		Name:          name,
		Ref:           ShortOrderRef(event.OrderID),
		ItemCount:     event.ItemCount,
		Total:         event.TotalAmount.StringFixed(2),
		Currency:      string(event.Currency),
		PaymentMethod: string(event.PaymentMethod),
	}

	var text, html bytes.Buffer
	if err := orderConfirmedText.Execute(&text, view); err != nil {
		return sendgrid.Message{}, fmt.Errorf("render text body: %w", err)
	}
	if err := orderConfirmedHTML.Execute(&html, view); err != nil {
		return sendgrid.Message{}, fmt.Errorf("render html body: %w", err)
	}

	return sendgrid.Message{
		To:       event.CustomerEmail,
		ToName:   strings.TrimSpace(event.CustomerName),
		Subject:  fmt.Sprintf("Your order %s is confirmed", view.Ref),
		Text:     text.String(),
		HTML:     html.String(),
		Category: "order_confirmed",
	}, nil
}
