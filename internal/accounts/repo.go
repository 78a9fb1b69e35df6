package accounts

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/fluxaudio/fluxaudio/internal/apperr"
	"github.com/fluxaudio/fluxaudio/internal/billing"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &Transaction{})
}

func (r *Repo) CreateUser(ctx context.Context, u *User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *Repo) GetUserByID(ctx context.Context, id string) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %s", apperr.ErrNotFound, id)
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repo) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).First(&u, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %s", apperr.ErrNotFound, username)
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repo) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// UsernameOrEmailTaken reports which registration conflict exists, if any.
func (r *Repo) UsernameOrEmailTaken(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error) {
	var cnt int64
	if err = r.db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Count(&cnt).Error; err != nil {
		return false, false, err
	}
	usernameTaken = cnt > 0

	if err = r.db.WithContext(ctx).Model(&User{}).Where("email = ?", email).Count(&cnt).Error; err != nil {
		return false, false, err
	}
	emailTaken = cnt > 0
	return usernameTaken, emailTaken, nil
}

// CreditMinutes adds minutes (clamping at zero on negative totals) and
// keeps PaidStatus in sync with the balance.
func (r *Repo) CreditMinutes(ctx context.Context, userID string, change int) (int, error) {
	var newMinutes int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u User
		if err := tx.First(&u, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: user %s", apperr.ErrNotFound, userID)
			}
			return err
		}

		u.MinutesRemaining += change
		if u.MinutesRemaining < 0 {
			u.MinutesRemaining = 0
		}
		u.PaidStatus = u.MinutesRemaining > 0
		newMinutes = u.MinutesRemaining

		return tx.Model(&User{}).Where("id = ?", u.ID).
			Updates(map[string]any{
				"minutes_remaining": u.MinutesRemaining,
				"paid_status":       u.PaidStatus,
			}).Error
	})
	return newMinutes, err
}

// DebitMinutes subtracts minutes, refusing the debit outright when the
// balance cannot cover it.
func (r *Repo) DebitMinutes(ctx context.Context, userID string, minutes int) (int, error) {
	var newMinutes int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u User
		if err := tx.First(&u, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: user %s", apperr.ErrNotFound, userID)
			}
			return err
		}

		if u.MinutesRemaining < minutes {
			return billing.ErrInsufficientFunds
		}

		u.MinutesRemaining -= minutes
		u.PaidStatus = u.MinutesRemaining > 0
		newMinutes = u.MinutesRemaining

		return tx.Model(&User{}).Where("id = ?", u.ID).
			Updates(map[string]any{
				"minutes_remaining": u.MinutesRemaining,
				"paid_status":       u.PaidStatus,
			}).Error
	})
	return newMinutes, err
}

func (r *Repo) CreateTransaction(ctx context.Context, t *Transaction) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *Repo) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	var t Transaction
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: transaction %s", apperr.ErrNotFound, id)
		}
		return nil, err
	}
	return &t, nil
}

func (r *Repo) UpdateTransactionStatus(ctx context.Context, id string, status TransactionStatus) error {
	return r.db.WithContext(ctx).Model(&Transaction{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *Repo) ListTransactionsByUser(ctx context.Context, userID string) ([]Transaction, error) {
	var out []Transaction
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
