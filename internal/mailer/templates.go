package mailer

import (
	"bytes"
	"html/template"
	"time"

	"github.com/supportdesk/helpdesk-service/internal/domain"
)

const layout = `<!DOCTYPE html>
<html>
<head>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background: {{.Color}}; color: white; padding: 20px; text-align: center; }
    .content { background: #f9fafb; padding: 20px; }
    .footer { background: #e5e7eb; padding: 10px; text-align: center; font-size: 12px; }
    .info { background: white; padding: 15px; margin: 15px 0; border-radius: 5px; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>{{.Product}}</h1>
      <p>{{.Headline}}</p>
    </div>
    <div class="content">
      <h2>Hello {{.Customer}},</h2>
      {{template "body" .}}
    </div>
    <div class="footer">
      <p>&copy; {{.Year}} {{.Product}}. All rights reserved.</p>
    </div>
  </div>
</body>
</html>`

const acknowledgementBody = `{{define "body"}}
      <p>Thank you for contacting us. We've received your query and will get back to you soon.</p>
      <div class="info">
        <h3>Query Details:</h3>
        <p><strong>Ticket ID:</strong> #{{.Ref}}</p>
        <p><strong>Category:</strong> {{.Ticket.Category}}</p>
        <p><strong>Priority:</strong> {{.Ticket.Priority}}</p>
        <p><strong>Message:</strong> {{.Ticket.Message}}</p>
      </div>
      <p>You can expect a response within 24 hours.</p>
{{end}}`

const updateBody = `{{define "body"}}
      <p>There's an update on your query:</p>
      <div class="info">
        <h3>Update Details:</h3>
        <p><strong>Ticket ID:</strong> #{{.Ref}}</p>
        <p><strong>New Status:</strong> {{.Ticket.Status}}</p>
        <p><strong>Assigned To:</strong> {{if .Ticket.AssignedTo}}{{.Ticket.AssignedTo}}{{else}}Not assigned yet{{end}}</p>
        <p><strong>Update:</strong> {{.Update}}</p>
      </div>
      <p>Thank you for your patience.</p>
{{end}}`

const resolutionBody = `{{define "body"}}
      <p>We're happy to inform you that your query has been resolved!</p>
      <div class="info">
        <h3>Resolution Details:</h3>
        <p><strong>Ticket ID:</strong> #{{.Ref}}</p>
        <p><strong>Original Message:</strong> {{.Ticket.Message}}</p>
        <p><strong>Status:</strong> Resolved</p>
        <p><strong>Resolved At:</strong> {{.ResolvedAt}}</p>
      </div>
      <p>If you have any further questions, please don't hesitate to contact us.</p>
{{end}}`

var (
	acknowledgementTmpl = template.Must(template.Must(template.New("ack").Parse(layout)).Parse(acknowledgementBody))
	updateTmpl          = template.Must(template.Must(template.New("update").Parse(layout)).Parse(updateBody))
	resolutionTmpl      = template.Must(template.Must(template.New("resolution").Parse(layout)).Parse(resolutionBody))
)

type templateData struct {
	Product    string
	Headline   string
	Color      template.CSS
	Customer   string
	Ref        string
	Ticket     domain.Ticket
	Update     string
	ResolvedAt string
	Year       int
}

// Templates renders the three customer emails for one product name.
type Templates struct {
	Product string
}

// Acknowledgement is sent when a ticket with a customer email is created.
func (t Templates) Acknowledgement(ticket domain.Ticket) (Message, error) {
	data := t.data(ticket, "Your query has been received", "#3b82f6")
	return t.render(acknowledgementTmpl, ticket, "We've received your query - Ticket #"+data.Ref, data)
}

// Update carries a one-line status or assignment message.
func (t Templates) Update(ticket domain.Ticket, update string) (Message, error) {
	data := t.data(ticket, "Update on your query", "#10b981")
	data.Update = update
	return t.render(updateTmpl, ticket, "Update on your query - Ticket #"+data.Ref, data)
}

// Resolution is sent when a ticket transitions into resolved.
func (t Templates) Resolution(ticket domain.Ticket) (Message, error) {
	data := t.data(ticket, "Query Resolved", "#10b981")
	data.ResolvedAt = ticket.UpdatedAt.UTC().Format(time.RFC1123)
	return t.render(resolutionTmpl, ticket, "Your query has been resolved - Ticket #"+data.Ref, data)
}

func (t Templates) data(ticket domain.Ticket, headline string, color template.CSS) templateData {
	product := t.Product
	if product == "" {
		product = "HelpDesk Pro"
	}
	customer := ticket.CustomerName
	if customer == "" {
		customer = "there"
	}
	return templateData{
		Product:  product,
		Headline: headline,
		Color:    color,
		Customer: customer,
		Ref:      ticket.ShortRef(),
		Ticket:   ticket,
		Year:     ticket.UpdatedAt.UTC().Year(),
	}
}

func (t Templates) render(tmpl *template.Template, ticket domain.Ticket, subject string, data templateData) (Message, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return Message{}, err
	}
	return Message{To: ticket.CustomerEmail, Subject: subject, HTML: buf.String()}, nil
}
