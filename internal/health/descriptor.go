package health

import "net/http"

// Descriptor is the static body served at GET /.
type Descriptor struct {
	Message       string            `json:"message"`
	Status        string            `json:"status"`
	Type          string            `json:"type"`
	Description   string            `json:"description"`
	Endpoints     map[string]string `json:"endpoints"`
	Documentation map[string]string `json:"documentation"`
	Features      map[string]bool   `json:"features"`
}

var serviceDescriptor = Descriptor{
	Message:     "MX Merchant Hosted Checkout API - Ready! ✅",
	Status:      "success",
	Type:        "Hosted Payment Links",
	Description: "Creates secure payment URLs where customers enter payment details on MX Merchant's hosted page",
	Endpoints: map[string]string{
		"health":            "GET /api/health",
		"createPaymentLink": "POST /api/payments/create - Returns a hosted payment URL",
		"getPayment":        "GET /api/payments/:paymentId",
		"listPayments":      "GET /api/payments",
	},
	Documentation: map[string]string{
		"howItWorks":      "See HOW_IT_WORKS.md for flow diagrams",
		"quickStart":      "See QUICK_START.md for examples",
		"payloadExamples": "See PAYLOAD_EXAMPLE.md for request/response examples",
		"multipleItems":   "See MULTIPLE_ITEMS_EXAMPLE.md for line items support",
		"twilioSetup":     "See TWILIO_SMS_SETUP.md for SMS integration",
		"testScript":      "Run: npm run test:payment",
	},
	Features: map[string]bool{
		"hostedCheckout":    true,
		"multipleLineItems": true,
		"pciCompliant":      true,
		"securePayments":    true,
		"smsNotifications":  true,
	},
}

// ServiceDescriptor returns the static API description.
func ServiceDescriptor() Descriptor { return serviceDescriptor }

// Root serves the service descriptor.
func (Handler) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ServiceDescriptor())
}
