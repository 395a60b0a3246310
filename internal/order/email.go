package order

import (
	"fmt"
	"html"
	"strings"
)

// confirmationBody renders the order confirmation email.
func confirmationBody(o *Order) string {
	var b strings.Builder

	b.WriteString("<html><body>")
	fmt.Fprintf(&b, "<h2>Order #%s</h2>", o.ID)
	b.WriteString("<p>Thank you for your order! We've received your order and will process it soon.</p>")

	b.WriteString("<h3>Order Details:</h3><table border=\"0\" cellpadding=\"6\">")
	b.WriteString("<tr><th align=\"left\">Product</th><th>Quantity</th><th align=\"right\">Price</th></tr>")
	for _, item := range o.Items {
		fmt.Fprintf(&b, "<tr><td>%s</td><td align=\"center\">%d</td><td align=\"right\">Rs. %.2f</td></tr>",
			html.EscapeString(item.Name), item.Quantity, item.UnitPrice)
	}
	b.WriteString("</table>")

	fmt.Fprintf(&b, "<p>Subtotal: Rs. %.2f<br>", o.ItemsPrice)
	fmt.Fprintf(&b, "Tax: Rs. %.2f<br>", o.TaxPrice)
	fmt.Fprintf(&b, "Shipping: Rs. %.2f<br>", o.ShippingPrice)
	fmt.Fprintf(&b, "<strong>Total: Rs. %.2f</strong></p>", o.TotalPrice)

	addr := o.ShippingAddress
	fmt.Fprintf(&b, "<h3>Shipping Address:</h3><p>%s<br>%s, %s %s<br>%s<br>Phone: %s</p>",
		html.EscapeString(addr.Street), html.EscapeString(addr.City), html.EscapeString(addr.State),
		html.EscapeString(addr.ZipCode), html.EscapeString(addr.Country), html.EscapeString(addr.Phone))
	b.WriteString("</body></html>")

	return b.String()
}
