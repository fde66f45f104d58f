package banking

import (
	"errors"
	"fmt"

	"qala.org/internal/city"
	"qala.org/internal/obs"
)

// Fiat is the TL ledger.
type Fiat struct {
	dir city.Directory
}

var _ Service = (*Fiat)(nil)

func NewFiat(dir city.Directory) *Fiat {
	return &Fiat{dir: dir}
}

// LoadMoney credits the balance. Amounts outside (0, 1,000,000] are
// rejected with the balance unchanged.
func (s *Fiat) LoadMoney(userID string, amount float64, details PaymentDetails) (bool, string) {
	if amount <= 0 || amount > MaxLoadAmount {
		return false, "Invalid amount."
	}
	var newBalance float64
	err := s.dir.Update(userID, func(u *city.UserRecord) error {
		u.Balance += amount
		u.History = append(u.History, fmt.Sprintf("Deposit: +%v TL", amount))
		newBalance = u.Balance
		return nil
	})
	if err != nil {
		return false, "User not found"
	}
	return true, fmt.Sprintf("New Balance: %v", newBalance)
}

// GetBalance returns 0 for an unknown user; absence is not an error here.
func (s *Fiat) GetBalance(userID string) float64 {
	var balance float64
	_ = s.dir.View(userID, func(u *city.UserRecord) {
		balance = u.Balance
	})
	return balance
}

// PayBill prefers the card instrument when given; otherwise it deducts
// from the balance and fails without mutation when funds are short.
func (s *Fiat) PayBill(amount float64, billType, userID string, details PaymentDetails) (bool, string) {
	if amount <= 0 {
		obs.PaymentsTotal.WithLabelValues("fiat", "rejected").Inc()
		return false, "Invalid amount"
	}
	var result string
	err := s.dir.Update(userID, func(u *city.UserRecord) error {
		if details.CardNo != "" {
			u.History = append(u.History, fmt.Sprintf("Card Payment: -%v", amount))
			result = "Paid by card."
			return nil
		}
		if u.Balance >= amount {
			u.Balance -= amount
			u.History = append(u.History, fmt.Sprintf("Balance Payment: -%v", amount))
			result = fmt.Sprintf("Paid from balance. Remaining: %v", u.Balance)
			return nil
		}
		return errInsufficientBalance
	})
	switch {
	case errors.Is(err, city.ErrUserNotFound):
		obs.PaymentsTotal.WithLabelValues("fiat", "rejected").Inc()
		return false, "No Account"
	case errors.Is(err, errInsufficientBalance):
		obs.PaymentsTotal.WithLabelValues("fiat", "rejected").Inc()
		return false, "Insufficient Balance."
	case err != nil:
		obs.PaymentsTotal.WithLabelValues("fiat", "error").Inc()
		return false, "Payment failed."
	}
	obs.PaymentsTotal.WithLabelValues("fiat", "ok").Inc()
	return true, result
}

// PayParking is a bill with the location folded into the bill kind.
func (s *Fiat) PayParking(amount float64, location, userID string, details PaymentDetails) (bool, string) {
	return s.PayBill(amount, fmt.Sprintf("Parking (%s)", location), userID, details)
}
