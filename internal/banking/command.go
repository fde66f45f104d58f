package banking

import "qala.org/internal/city"

// PayBillCommand captures one payment intent immutably at creation. It is
// executed through the controller's command slot, at most once.
type PayBillCommand struct {
	service  Service
	amount   float64
	billType string
	userID   string
	details  PaymentDetails
	location string
}

var _ city.Command = (*PayBillCommand)(nil)

func NewPayBillCommand(service Service, amount float64, billType, userID string, details PaymentDetails, location string) *PayBillCommand {
	return &PayBillCommand{
		service:  service,
		amount:   amount,
		billType: billType,
		userID:   userID,
		details:  details,
		location: location,
	}
}

// Execute dispatches to PayParking when the bill kind is the literal
// "Parking", otherwise to PayBill, returning the service result unchanged.
func (c *PayBillCommand) Execute() (bool, string) {
	if c.billType == "Parking" {
		return c.service.PayParking(c.amount, c.location, c.userID, c.details)
	}
	return c.service.PayBill(c.amount, c.billType, c.userID, c.details)
}
