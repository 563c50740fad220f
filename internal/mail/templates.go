package mail

import (
	"context"
	"io"

	"github.com/a-h/templ"
	"github.com/shopspring/decimal"
)

// ActivationData feeds the activation-mail template.
type ActivationData struct {
	Name string
	Code string
}

// OrderData feeds the order-confirmation template.
type OrderData struct {
	OrderID    string
	CourseName string
	Price      decimal.Decimal
	Date       string
}

// QuestionReplyData feeds the question-reply template.
type QuestionReplyData struct {
	Name  string
	Title string
}

// layout wraps body in the shared mail chrome.
func layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!doctype html><html><head><meta charset="utf-8"><title>`+
			templ.EscapeString(title)+
			`</title></head><body style="font-family:Arial,sans-serif;color:#333;max-width:600px;margin:0 auto;padding:20px">`); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `<p style="font-size:12px;color:#888">If you did not request this email, you can ignore it.</p></body></html>`)
		return err
	})
}

// ActivationMail carries the 4-digit code that confirms a registration.
func ActivationMail(d ActivationData) templ.Component {
	return layout("Activate your account", templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w,
			`<h1>Welcome to E-Learning</h1>`+
				`<p>Hello `+templ.EscapeString(d.Name)+`,</p>`+
				`<p>Thank you for registering. Enter this code to activate your account:</p>`+
				`<p style="font-size:28px;font-weight:bold;letter-spacing:6px">`+templ.EscapeString(d.Code)+`</p>`+
				`<p>The code expires in a few minutes.</p>`)
		return err
	}))
}

// OrderConfirmationMail confirms a course purchase.
func OrderConfirmationMail(d OrderData) templ.Component {
	return layout("Order confirmation", templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w,
			`<h1>Thank you for your order</h1>`+
				`<table style="width:100%;border-collapse:collapse">`+
				`<tr><td>Order</td><td>#`+templ.EscapeString(d.OrderID)+`</td></tr>`+
				`<tr><td>Course</td><td>`+templ.EscapeString(d.CourseName)+`</td></tr>`+
				`<tr><td>Price</td><td>$`+templ.EscapeString(d.Price.StringFixed(2))+`</td></tr>`+
				`<tr><td>Date</td><td>`+templ.EscapeString(d.Date)+`</td></tr>`+
				`</table>`)
		return err
	}))
}

// QuestionReplyMail tells a learner that their question got an answer.
func QuestionReplyMail(d QuestionReplyData) templ.Component {
	return layout("New reply to your question", templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w,
			`<h1>New reply</h1>`+
				`<p>Hello `+templ.EscapeString(d.Name)+`,</p>`+
				`<p>A new reply has been added to your question in the video <strong>`+
				templ.EscapeString(d.Title)+`</strong>. Log in to read it.</p>`)
		return err
	}))
}
