// Package orders records course purchases. Creating an order verifies the
// payment, mails a confirmation and then grants the course to the buyer
// through the auth plugin's user service, so the buyer's session snapshot
// sees the course on the next request.
package orders

import "time"

// PaymentInfo is what the client reports about its payment. When Stripe
// verification is enabled, ID must name a succeeded PaymentIntent.
type PaymentInfo map[string]any

// ID returns the payment id, or "" when absent.
func (p PaymentInfo) ID() string {
	id, _ := p["id"].(string)
	return id
}

// Order is one purchase of one course.
type Order struct {
	ID          string      `json:"id"`
	CourseID    string      `json:"course_id"`
	UserID      string      `json:"user_id"`
	PaymentInfo PaymentInfo `json:"payment_info,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// CreateOrderRequest is the body of POST /createOrder.
type CreateOrderRequest struct {
	CourseID    string      `json:"courseId" validate:"required"`
	PaymentInfo PaymentInfo `json:"payment_info"`
}
