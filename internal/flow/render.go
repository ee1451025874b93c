package flow

import (
	"fmt"
	"strings"

	"quotedesk/internal"
)

var fieldLabels = map[string]string{
	internal.FieldProductName:  "which product you are interested in",
	internal.FieldLengthInches: "the length in inches",
	internal.FieldWidthInches:  "the width in inches",
}

func greeting(customer internal.CustomerRecord) string {
	if customer.Name != nil && *customer.Name != "" {
		return "Hi " + *customer.Name + ","
	}
	return "Hello,"
}

func renderInfoRequest(businessName string, customer internal.CustomerRecord, missing []string) string {
	var b strings.Builder
	b.WriteString(greeting(customer))
	b.WriteString("\n\nThanks for reaching out. To put together a quote we still need:\n")
	for _, field := range missing {
		label, ok := fieldLabels[field]
		if !ok {
			label = field
		}
		b.WriteString("  - " + label + "\n")
	}
	b.WriteString("\nReply to this email with the details and we'll send your quote right away.\n\n")
	b.WriteString("Best regards,\n" + businessName + "\n")
	return b.String()
}

func renderQuote(business internal.BusinessRecord, customer internal.CustomerRecord, quote internal.QuoteRecord, price internal.PriceResult) string {
	var b strings.Builder
	b.WriteString(greeting(customer))
	b.WriteString("\n\nHere is your quote:\n\n")
	fmt.Fprintf(&b, "  Quote number: %s\n", quote.QuoteNumber)
	fmt.Fprintf(&b, "  Dimensions:   %.2f\" x %.2f\" (%.2f sq in)\n", quote.LengthInches, quote.WidthInches, quote.AreaSqInches)
	fmt.Fprintf(&b, "  Total price:  $%.2f\n", quote.TotalPrice)
	if quote.TotalPrice == price.MinOrder && price.MinOrder > 0 {
		fmt.Fprintf(&b, "\nNote: this order is priced at our minimum order amount of $%.2f.\n", price.MinOrder)
	}
	b.WriteString("\nThis quote is valid for 30 days. Reply to this email to confirm your order.\n\n")
	b.WriteString("Best regards,\n" + business.Name + "\n")
	return b.String()
}
