package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fluxaudio/fluxaudio/internal/apperr"
	"github.com/fluxaudio/fluxaudio/internal/auth"
	"github.com/fluxaudio/fluxaudio/internal/common"
	"github.com/fluxaudio/fluxaudio/internal/notify"
)

// defaultCreditMinutes is what a completed checkout grants when the
// webhook does not say otherwise.
const defaultCreditMinutes = 60

type Service struct {
	repo      *Repo
	notifier  notify.Notifier
	log       *logrus.Entry
	jwtSecret string
	tokenTTL  time.Duration
}

func NewService(repo *Repo, notifier notify.Notifier, log *logrus.Entry, jwtSecret string, tokenTTL time.Duration) *Service {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{repo: repo, notifier: notifier, log: log, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

// SeedAdmin ensures the demo admin account exists with a generous balance.
func (s *Service) SeedAdmin(ctx context.Context, password string) error {
	_, err := s.repo.GetUserByUsername(ctx, "admin")
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return s.repo.CreateUser(ctx, &User{
		ID:               common.NewUUID(),
		Username:         "admin",
		Email:            "admin@example.com",
		PasswordHash:     hash,
		Role:             RoleAdmin,
		PaidStatus:       true,
		MinutesRemaining: 99999,
	})
}

func (s *Service) Register(ctx context.Context, username, email, password string) (*User, error) {
	usernameTaken, emailTaken, err := s.repo.UsernameOrEmailTaken(ctx, username, email)
	if err != nil {
		return nil, err
	}
	if usernameTaken {
		return nil, fmt.Errorf("%w: username already registered", apperr.ErrInvalidArgument)
	}
	if emailTaken {
		return nil, fmt.Errorf("%w: email already registered", apperr.ErrInvalidArgument)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:           common.NewUUID(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         RoleUser,
		// new users start unpaid with no balance
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", fmt.Errorf("%w: incorrect username or password", apperr.ErrAuth)
		}
		return "", err
	}
	if !auth.VerifyPassword(password, u.PasswordHash) {
		return "", fmt.Errorf("%w: incorrect username or password", apperr.ErrAuth)
	}
	return auth.SignToken(u.ID, u.Username, u.Role, s.jwtSecret, s.tokenTTL)
}

func (s *Service) Profile(ctx context.Context, userID string) (*User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// CreateCheckout opens a pending transaction against the dummy gateway.
func (s *Service) CreateCheckout(ctx context.Context, userID string, amount float64, currency, planName string) (*Transaction, error) {
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	id, err := common.NewULID()
	if err != nil {
		return nil, err
	}
	t := &Transaction{
		ID:         id,
		UserID:     userID,
		Amount:     amount,
		Currency:   currency,
		PlanName:   planName,
		Status:     TransactionPending,
		GatewayURL: fmt.Sprintf("https://dummy-payment-gateway.com/checkout?id=%s&amount=%g", id, amount),
	}
	if err := s.repo.CreateTransaction(ctx, t); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"transaction_id": t.ID, "user_id": userID}).Info("checkout session created")
	return t, nil
}

// HandleWebhook applies a gateway status update. Completed transactions
// are idempotent: a second webhook for one is acknowledged and ignored.
func (s *Service) HandleWebhook(ctx context.Context, transactionID, status, userID string, minutesAdded *int) error {
	t, err := s.repo.GetTransaction(ctx, transactionID)
	if err != nil {
		return err
	}
	if t.Status == TransactionCompleted {
		s.log.WithField("transaction_id", transactionID).Info("transaction already completed, ignoring webhook")
		return nil
	}

	if err := s.repo.UpdateTransactionStatus(ctx, transactionID, TransactionStatus(status)); err != nil {
		return err
	}
	if TransactionStatus(status) != TransactionCompleted {
		return nil
	}

	creditTo := t.UserID
	if userID != "" {
		creditTo = userID
	}
	minutes := defaultCreditMinutes
	if minutesAdded != nil {
		minutes = *minutesAdded
	}

	newMinutes, err := s.repo.CreditMinutes(ctx, creditTo, minutes)
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"user_id": creditTo, "minutes": minutes, "balance": newMinutes}).
		Info("credited minutes from completed transaction")

	if s.notifier != nil {
		msg := fmt.Sprintf("Your payment for %s was successful! You've received %d minutes.", t.PlanName, minutes)
		if err := s.notifier.Publish(ctx, notify.Notification{UserID: creditTo, Message: msg, Kind: notify.KindPaymentSuccess}); err != nil {
			s.log.WithError(err).Warn("payment notification delivery failed")
		}
	}
	return nil
}

func (s *Service) UpdateMinutes(ctx context.Context, userID string, change int) (int, error) {
	return s.repo.CreditMinutes(ctx, userID, change)
}

func (s *Service) DebitMinutes(ctx context.Context, userID string, minutes int) (int, error) {
	if minutes <= 0 {
		return 0, fmt.Errorf("%w: minutes to debit must be positive", apperr.ErrInvalidArgument)
	}
	return s.repo.DebitMinutes(ctx, userID, minutes)
}

func (s *Service) ListTransactions(ctx context.Context, userID string) ([]Transaction, error) {
	return s.repo.ListTransactionsByUser(ctx, userID)
}
