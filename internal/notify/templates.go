package notify

import (
	"bytes"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/noah-isme/mx-paylink/internal/common"
)

const emailHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin: 0; padding: 0; font-family: Arial, sans-serif; background-color: #f4f4f4;">
  <table width="100%" cellpadding="0" cellspacing="0" style="background-color: #f4f4f4; padding: 20px;">
    <tr>
      <td align="center">
        <table width="600" cellpadding="0" cellspacing="0" style="background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="background-color: #667eea; padding: 30px; text-align: center;">
              <h1 style="color: #ffffff; margin: 0; font-size: 28px;">Payment Request</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 40px 30px;">
              <p style="color: #333; font-size: 16px;">Hello {{.CustomerName}},</p>
              <p style="color: #666; font-size: 14px;">You have a payment request for invoice <strong>{{.InvoiceNumber}}</strong>.</p>
{{- if .Items}}
              <h3 style="color: #333; margin-top: 20px;">Items:</h3>
              <table style="width: 100%; border-collapse: collapse; margin-top: 10px;">
                <tr style="background-color: #f8f9fa;">
                  <th style="padding: 10px; text-align: left;">Description</th>
                  <th style="padding: 10px; text-align: center;">Qty</th>
                  <th style="padding: 10px; text-align: right;">Amount</th>
                </tr>
{{- range .Items}}
                <tr>
                  <td style="padding: 10px;">{{.Description}}</td>
                  <td style="padding: 10px; text-align: center;">{{.Quantity}}</td>
                  <td style="padding: 10px; text-align: right;">${{.Amount}}</td>
                </tr>
{{- end}}
              </table>
{{- end}}
              <div style="background-color: #f8f9fa; border-left: 4px solid #667eea; padding: 20px; margin: 20px 0;">
                <p style="color: #333; font-size: 18px; margin: 0;"><strong>Total Amount:</strong></p>
                <p style="color: #667eea; font-size: 32px; font-weight: bold; margin: 10px 0 0 0;">${{.Total}}</p>
              </div>
              <table width="100%" cellpadding="0" cellspacing="0" style="margin: 30px 0;">
                <tr>
                  <td align="center">
                    <a href="{{.PaymentURL}}" style="display: inline-block; background-color: #667eea; color: #ffffff; text-decoration: none; padding: 16px 40px; border-radius: 6px; font-weight: bold;">Pay Now</a>
                  </td>
                </tr>
              </table>
              <p style="color: #999; font-size: 12px; text-align: center;">
                Or copy this link: <br/>
                <a href="{{.PaymentURL}}" style="color: #667eea; word-break: break-all;">{{.PaymentURL}}</a>
              </p>
            </td>
          </tr>
          <tr>
            <td style="background-color: #f8f9fa; padding: 20px; text-align: center;">
              <p style="color: #999; font-size: 12px; margin: 0;">This is an automated payment notification. Please do not reply to this email.</p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>
`

const emailText = `Payment Request for Invoice {{.InvoiceNumber}}

Hello {{.CustomerName}},

You have a payment request for invoice {{.InvoiceNumber}}.
{{if .Items}}
Items:
{{range .Items}}- {{.Description}}: ${{.Amount}} x {{.Quantity}}
{{end}}{{end}}
Total Amount: ${{.Total}}

Click here to pay: {{.PaymentURL}}

Thank you!
`

var (
	htmlTmpl = htmltemplate.Must(htmltemplate.New("email.html").Parse(emailHTML))
	textTmpl = texttemplate.Must(texttemplate.New("email.txt").Parse(emailText))
)

type emailItem struct {
	Description string
	Quantity    int
	Amount      string
}

type emailView struct {
	CustomerName  string
	InvoiceNumber string
	PaymentURL    string
	Total         string
	Items         []emailItem
}

func newEmailView(msg Message) emailView {
	view := emailView{
		CustomerName:  msg.CustomerName,
		InvoiceNumber: msg.InvoiceNumber,
		PaymentURL:    msg.PaymentURL,
		Total:         msg.Amount.Fixed2(),
	}
	for _, item := range msg.LineItems {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		view.Items = append(view.Items, emailItem{
			Description: item.Description,
			Quantity:    qty,
			Amount:      common.FormatMoney(item.Amount.Value),
		})
	}
	return view
}

// RenderEmail returns the HTML and plain-text bodies for msg.
func RenderEmail(msg Message) (string, string, error) {
	view := newEmailView(msg)
	var html, text bytes.Buffer
	if err := htmlTmpl.Execute(&html, view); err != nil {
		return "", "", err
	}
	if err := textTmpl.Execute(&text, view); err != nil {
		return "", "", err
	}
	return html.String(), strings.TrimSpace(text.String()), nil
}

// EmailSubject is the subject line for an invoice's payment request.
func EmailSubject(invoiceNumber string) string {
	return "Payment Request - Invoice " + invoiceNumber
}
