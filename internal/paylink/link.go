package paylink

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/noah-isme/mx-paylink/internal/common"
	"github.com/noah-isme/mx-paylink/internal/notify"
)

// orderedQuery is a form-encoded query string that keeps insertion order.
type orderedQuery struct {
	b strings.Builder
}

func (q *orderedQuery) add(key, value string) {
	if q.b.Len() > 0 {
		q.b.WriteByte('&')
	}
	q.b.WriteString(url.QueryEscape(key))
	q.b.WriteByte('=')
	q.b.WriteString(url.QueryEscape(value))
}

func (q *orderedQuery) String() string { return q.b.String() }

// BuildPaymentURL returns the hosted Link2Pay page for udid carrying req. The
// memo is the already defaulted invoice description.
func BuildPaymentURL(pageBase, udid string, req Request, memo string) string {
	var q orderedQuery
	q.add("Amt", req.Amount.Fixed2())
	q.add("InvoiceNo", req.Invoice.Number)
	q.add("CustomerName", req.Customer.Name)
	q.add("CustomerEmail", req.Customer.Email)
	if req.Customer.Phone != "" {
		q.add("CustomerPhone", req.Customer.Phone)
	}
	if memo != "" {
		q.add("Memo", memo)
	}
	for i, item := range req.LineItems {
		prefix := "Item" + strconv.Itoa(i+1)
		q.add(prefix+"Description", item.Description)
		if item.hasAmount() {
			q.add(prefix+"Amount", common.FormatMoney(item.Amount.Value))
		}
		if item.Quantity != nil {
			q.add(prefix+"Quantity", strconv.Itoa(*item.Quantity))
		}
	}
	return strings.TrimRight(pageBase, "/") + "/Link2Pay/" + url.PathEscape(udid) + "?" + q.String()
}

// Memo returns the invoice description or the default derived from its number.
func Memo(inv Invoice) string {
	if inv.Description != "" {
		return inv.Description
	}
	return "Payment for " + inv.Number
}

// SummaryMessage describes which channels delivered the link.
func SummaryMessage(sms, email *notify.Result) string {
	var sent []string
	if sms != nil && sms.Sent {
		sent = append(sent, "SMS sent")
	}
	if email != nil && email.Sent {
		sent = append(sent, "Email sent")
	}
	if len(sent) == 0 {
		return "Payment link created. Redirect customer to paymentUrl to complete payment"
	}
	return "Payment link created and " + strings.Join(sent, " and ") + " to customer"
}
