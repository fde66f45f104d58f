// Package banking implements the portal's toy ledgers: a fiat variant and
// a pseudo-crypto variant behind one capability interface. Balances live on
// the user records in the city directory; every mutation runs under the
// directory's write lock.
package banking

import "errors"

// PaymentDetails optionally carries an external instrument. A non-empty
// card number (fiat) or wallet id (crypto) charges externally and leaves
// the balance untouched; otherwise the balance is the fallback.
type PaymentDetails struct {
	CardNo   string
	WalletID string
}

// Service is the shared capability contract of the ledger variants.
type Service interface {
	LoadMoney(userID string, amount float64, details PaymentDetails) (bool, string)
	GetBalance(userID string) float64
	PayBill(amount float64, billType, userID string, details PaymentDetails) (bool, string)
	PayParking(amount float64, location, userID string, details PaymentDetails) (bool, string)
}

var errInsufficientBalance = errors.New("banking: insufficient balance")

// MaxLoadAmount caps a single fiat deposit. The crypto variant deliberately
// does not enforce it.
const MaxLoadAmount = 1_000_000.0
