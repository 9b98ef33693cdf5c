// Package pay settles itinerary bookings. Card payments are taken by an
// external processor and only recorded here; wallet payments are debited
// from and refunded to the tourist's account.
package pay

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"tripgenie/errs"
	"tripgenie/models"
	"tripgenie/rdx"
	"tripgenie/utils"
)

// lockTTL bounds how long one tourist's wallet stays locked.
const lockTTL = 5 * time.Second

type WalletStore interface {
	FindAccount(ctx context.Context, id string) (models.Account, error)
	AdjustWallet(ctx context.Context, id string, delta float64) (models.Account, error)
}

// PaymentService handles wallet debits and refunds.
type PaymentService struct {
	accounts WalletStore
	locks    rdx.Locker
}

func NewPaymentService(accounts WalletStore, locks rdx.Locker) *PaymentService {
	if locks == nil {
		locks = rdx.NoLocker{}
	}
	return &PaymentService{accounts: accounts, locks: locks}
}

// Charge takes amount from tourist when paying by wallet. Card payments
// need no action. It reports whether the wallet was debited.
func (p *PaymentService) Charge(ctx context.Context, tourist string, pt models.PaymentType, amount float64) (bool, error) {
	if !pt.Valid() {
		return false, errs.Validation("unknown payment type %q", pt)
	}
	if pt != models.Wallet || amount <= 0 {
		return false, nil
	}

	unlock, err := p.locks.Lock(ctx, "wallet:"+tourist, lockTTL)
	if errors.Is(err, rdx.ErrLocked) {
		return false, errs.Conflict("another payment from this wallet is in progress, please retry")
	}
	if err != nil {
		return false, err
	}
	defer unlock()

	if _, err := p.accounts.AdjustWallet(ctx, tourist, -amount); err != nil {
		return false, err
	}
	return true, nil
}

// Refund returns amount to the tourist's wallet.
func (p *PaymentService) Refund(ctx context.Context, tourist string, amount float64) error {
	if amount <= 0 {
		return nil
	}
	_, err := p.accounts.AdjustWallet(ctx, tourist, amount)
	return err
}

// GetBalance returns the caller's wallet balance.
func (p *PaymentService) GetBalance(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	acc, err := p.accounts.FindAccount(r.Context(), utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"balance": acc.Wallet})
}
