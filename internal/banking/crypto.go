package banking

import (
	"errors"
	"fmt"

	"qala.org/internal/city"
	"qala.org/internal/obs"
)

// ExternalWallet simulates the third-party crypto rail. The conversion is
// report-only; the ledger stays denominated in TL.
type ExternalWallet struct{}

func (ExternalWallet) SendBitcoin(btcAmount float64) string {
	return fmt.Sprintf("%.6f BTC", btcAmount)
}

// Crypto adapts the external wallet to the shared ledger contract.
type Crypto struct {
	dir     city.Directory
	wallet  ExternalWallet
	btcRate float64
}

var _ Service = (*Crypto)(nil)

func NewCrypto(dir city.Directory) *Crypto {
	return &Crypto{dir: dir, btcRate: 100000.0}
}

// LoadMoney credits the balance. Unlike the fiat variant there is no upper
// bound; the asymmetry is inherited behavior kept on purpose.
func (s *Crypto) LoadMoney(userID string, amount float64, details PaymentDetails) (bool, string) {
	if amount <= 0 {
		return false, "Invalid."
	}
	err := s.dir.Update(userID, func(u *city.UserRecord) error {
		u.Balance += amount
		u.History = append(u.History, fmt.Sprintf("Crypto Deposit: +%v", amount))
		return nil
	})
	if err != nil {
		return false, "User not found"
	}
	return true, "Loaded."
}

func (s *Crypto) GetBalance(userID string) float64 {
	var balance float64
	_ = s.dir.View(userID, func(u *city.UserRecord) {
		balance = u.Balance
	})
	return balance
}

// PayBill charges the external wallet when a wallet id is supplied,
// converting the TL amount at the fixed rate for the reported transfer;
// otherwise the balance fallback applies.
func (s *Crypto) PayBill(amount float64, billType, userID string, details PaymentDetails) (bool, string) {
	if amount <= 0 {
		obs.PaymentsTotal.WithLabelValues("crypto", "rejected").Inc()
		return false, "Invalid."
	}
	var result string
	err := s.dir.Update(userID, func(u *city.UserRecord) error {
		if details.WalletID != "" {
			transfer := s.wallet.SendBitcoin(amount / s.btcRate)
			obs.Trace("banking.crypto_charge", map[string]any{"transfer": transfer})
			u.History = append(u.History, fmt.Sprintf("Crypto Payment: -%v", amount))
			result = "Paid with crypto."
			return nil
		}
		if u.Balance >= amount {
			u.Balance -= amount
			u.History = append(u.History, fmt.Sprintf("Balance Payment: -%v", amount))
			result = "Paid from balance."
			return nil
		}
		return errInsufficientBalance
	})
	switch {
	case errors.Is(err, city.ErrUserNotFound):
		obs.PaymentsTotal.WithLabelValues("crypto", "rejected").Inc()
		return false, "No Account"
	case errors.Is(err, errInsufficientBalance):
		obs.PaymentsTotal.WithLabelValues("crypto", "rejected").Inc()
		return false, "Insufficient Balance"
	case err != nil:
		obs.PaymentsTotal.WithLabelValues("crypto", "error").Inc()
		return false, "Payment failed."
	}
	obs.PaymentsTotal.WithLabelValues("crypto", "ok").Inc()
	return true, result
}

func (s *Crypto) PayParking(amount float64, location, userID string, details PaymentDetails) (bool, string) {
	return s.PayBill(amount, fmt.Sprintf("Parking (%s)", location), userID, details)
}
