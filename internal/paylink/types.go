// Package paylink creates MX Merchant hosted payment links and notifies customers.
package paylink

import (
	"github.com/noah-isme/mx-paylink/internal/common"
	"github.com/noah-isme/mx-paylink/internal/notify"
)

const defaultCurrency = "USD"

type Invoice struct {
	Number      string `json:"number" validate:"required"`
	Description string `json:"description,omitempty"`
}

type Customer struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required"`
	Phone string `json:"phone,omitempty"`
}

// LineItem is an invoice row. Amount and Quantity are nil when absent from the
// request.
type LineItem struct {
	Description string         `json:"description"`
	Amount      *common.Amount `json:"amount,omitempty"`
	Quantity    *int           `json:"quantity,omitempty"`
}

func (li LineItem) hasAmount() bool {
	return li.Amount != nil && li.Amount.Valid
}

// Request is the body of POST /api/payments/create.
type Request struct {
	Amount    common.Amount `json:"amount"`
	Invoice   Invoice       `json:"invoice"`
	Customer  Customer      `json:"customer"`
	LineItems []LineItem    `json:"lineItems"`
	Currency  string        `json:"currency,omitempty"`
	SendSMS   *bool         `json:"sendSms,omitempty"`
	SendEmail *bool         `json:"sendEmail,omitempty"`
}

func (r Request) wantsSMS() bool {
	return r.Customer.Phone != "" && (r.SendSMS == nil || *r.SendSMS)
}

func (r Request) wantsEmail() bool {
	return r.Customer.Email != "" && (r.SendEmail == nil || *r.SendEmail)
}

// Result is returned to the caller once the link exists. SMS and Email are nil
// when the channel was not attempted.
type Result struct {
	PaymentURL string         `json:"paymentUrl"`
	Amount     common.Amount  `json:"amount"`
	Currency   string         `json:"currency"`
	Invoice    Invoice        `json:"invoice"`
	Customer   Customer       `json:"customer"`
	LineItems  []LineItem     `json:"lineItems"`
	SMS        *notify.Result `json:"sms"`
	Email      *notify.Result `json:"email"`
	Message    string         `json:"message"`
}

func notifyItems(items []LineItem) []notify.LineItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]notify.LineItem, 0, len(items))
	for _, item := range items {
		row := notify.LineItem{Description: item.Description}
		if item.Amount != nil {
			row.Amount = *item.Amount
		}
		if item.Quantity != nil {
			row.Quantity = *item.Quantity
		}
		out = append(out, row)
	}
	return out
}
