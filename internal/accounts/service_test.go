package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fluxaudio/fluxaudio/internal/apperr"
	"github.com/fluxaudio/fluxaudio/internal/auth"
	"github.com/fluxaudio/fluxaudio/internal/billing"
	"github.com/fluxaudio/fluxaudio/internal/notify"
)

type captureNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (c *captureNotifier) Publish(_ context.Context, n notify.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, n)
	return nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// One named in-memory database per test: shared across the pool's
	// connections, invisible to other tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (*Service, *captureNotifier) {
	t.Helper()
	n := &captureNotifier{}
	svc := NewService(NewRepo(openTestDB(t)), n, nil, "test-secret", 30*time.Minute)
	return svc, n
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice", "alice@example.com", "hunter2pass")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.ID == "" || u.Role != RoleUser {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.PaidStatus || u.MinutesRemaining != 0 {
		t.Fatal("new users must start unpaid with zero minutes")
	}
	if u.PasswordHash == "hunter2pass" {
		t.Fatal("password stored in the clear")
	}

	token, err := svc.Login(ctx, "alice", "hunter2pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	ident, err := auth.VerifyToken(token, "test-secret")
	if err != nil {
		t.Fatalf("verify issued token: %v", err)
	}
	if ident.SubjectID != u.ID || ident.Username != "alice" || ident.Role != RoleUser {
		t.Fatalf("token claims mismatch: %+v", ident)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "alice", "alice@example.com", "hunter2pass"); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Login(ctx, "alice", "wrong"); !errors.Is(err, apperr.ErrAuth) {
		t.Fatalf("wrong password: expected AuthError, got %v", err)
	}
	// An unknown username gets the same error shape as a wrong password.
	if _, err := svc.Login(ctx, "mallory", "whatever"); !errors.Is(err, apperr.ErrAuth) {
		t.Fatalf("unknown username: expected AuthError, got %v", err)
	}
}

func TestRegister_DuplicateUsernameOrEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "alice", "alice@example.com", "hunter2pass"); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Register(ctx, "alice", "other@example.com", "password1"); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("duplicate username: expected InvalidArgument, got %v", err)
	}
	if _, err := svc.Register(ctx, "bob", "alice@example.com", "password1"); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("duplicate email: expected InvalidArgument, got %v", err)
	}
}

func TestSeedAdmin_Idempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.SeedAdmin(ctx, "admin-pass"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := svc.SeedAdmin(ctx, "different-pass"); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	users, err := svc.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected one admin, got %d users", len(users))
	}
	admin := users[0]
	if admin.Role != RoleAdmin || !admin.PaidStatus || admin.MinutesRemaining != 99999 {
		t.Fatalf("unexpected admin record: %+v", admin)
	}
	// The original password still works after the no-op second seed.
	if _, err := svc.Login(ctx, "admin", "admin-pass"); err != nil {
		t.Fatalf("admin login: %v", err)
	}
}

func TestCreditAndDebitMinutes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	u, err := svc.Register(ctx, "alice", "alice@example.com", "hunter2pass")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	balance, err := svc.UpdateMinutes(ctx, u.ID, 30)
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if balance != 30 {
		t.Fatalf("expected balance 30, got %d", balance)
	}
	profile, _ := svc.Profile(ctx, u.ID)
	if !profile.PaidStatus {
		t.Fatal("positive balance should flip paid status on")
	}

	balance, err = svc.DebitMinutes(ctx, u.ID, 30)
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if balance != 0 {
		t.Fatalf("expected balance 0, got %d", balance)
	}
	profile, _ = svc.Profile(ctx, u.ID)
	if profile.PaidStatus {
		t.Fatal("zero balance should flip paid status off")
	}
}

func TestDebitMinutes_RefusesOverdraft(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	u, err := svc.Register(ctx, "alice", "alice@example.com", "hunter2pass")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.UpdateMinutes(ctx, u.ID, 5); err != nil {
		t.Fatalf("credit: %v", err)
	}

	if _, err := svc.DebitMinutes(ctx, u.ID, 6); !errors.Is(err, billing.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	// The refused debit must not touch the balance.
	profile, _ := svc.Profile(ctx, u.ID)
	if profile.MinutesRemaining != 5 {
		t.Fatalf("balance changed by refused debit: %d", profile.MinutesRemaining)
	}

	if _, err := svc.DebitMinutes(ctx, u.ID, 0); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("zero debit: expected InvalidArgument, got %v", err)
	}
	if _, err := svc.DebitMinutes(ctx, "no-such-user", 1); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("unknown user: expected NotFound, got %v", err)
	}
}

func TestUpdateMinutes_NegativeClampsAtZero(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	u, _ := svc.Register(ctx, "alice", "alice@example.com", "hunter2pass")
	_, _ = svc.UpdateMinutes(ctx, u.ID, 10)

	balance, err := svc.UpdateMinutes(ctx, u.ID, -25)
	if err != nil {
		t.Fatalf("negative update: %v", err)
	}
	if balance != 0 {
		t.Fatalf("expected clamp at 0, got %d", balance)
	}
}

func TestCheckoutAndWebhook(t *testing.T) {
	svc, notifier := newTestService(t)
	ctx := context.Background()
	u, _ := svc.Register(ctx, "alice", "alice@example.com", "hunter2pass")

	tx, err := svc.CreateCheckout(ctx, u.ID, 9.99, "usd", "starter")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if tx.Status != TransactionPending {
		t.Fatalf("expected pending transaction, got %s", tx.Status)
	}
	if !strings.Contains(tx.GatewayURL, tx.ID) {
		t.Fatalf("gateway URL should reference the transaction: %s", tx.GatewayURL)
	}

	if err := svc.HandleWebhook(ctx, tx.ID, string(TransactionCompleted), "", nil); err != nil {
		t.Fatalf("webhook: %v", err)
	}

	profile, _ := svc.Profile(ctx, u.ID)
	if profile.MinutesRemaining != defaultCreditMinutes {
		t.Fatalf("expected %d minutes credited, got %d", defaultCreditMinutes, profile.MinutesRemaining)
	}
	if !profile.PaidStatus {
		t.Fatal("completed payment should mark the account paid")
	}

	notifier.mu.Lock()
	sent := len(notifier.sent)
	var kind string
	if sent > 0 {
		kind = notifier.sent[0].Kind
	}
	notifier.mu.Unlock()
	if sent != 1 || kind != notify.KindPaymentSuccess {
		t.Fatalf("expected one payment_success notification, got %d (%s)", sent, kind)
	}
}

func TestHandleWebhook_IdempotentOnCompleted(t *testing.T) {
	svc, notifier := newTestService(t)
	ctx := context.Background()
	u, _ := svc.Register(ctx, "alice", "alice@example.com", "hunter2pass")
	tx, _ := svc.CreateCheckout(ctx, u.ID, 9.99, "usd", "starter")

	minutes := 40
	for i := 0; i < 3; i++ {
		if err := svc.HandleWebhook(ctx, tx.ID, string(TransactionCompleted), "", &minutes); err != nil {
			t.Fatalf("webhook %d: %v", i, err)
		}
	}

	profile, _ := svc.Profile(ctx, u.ID)
	if profile.MinutesRemaining != 40 {
		t.Fatalf("replayed webhook credited again: %d minutes", profile.MinutesRemaining)
	}
	notifier.mu.Lock()
	sent := len(notifier.sent)
	notifier.mu.Unlock()
	if sent != 1 {
		t.Fatalf("expected a single notification across replays, got %d", sent)
	}
}

func TestHandleWebhook_FailedStatusCreditsNothing(t *testing.T) {
	svc, notifier := newTestService(t)
	ctx := context.Background()
	u, _ := svc.Register(ctx, "alice", "alice@example.com", "hunter2pass")
	tx, _ := svc.CreateCheckout(ctx, u.ID, 9.99, "usd", "starter")

	if err := svc.HandleWebhook(ctx, tx.ID, string(TransactionFailed), "", nil); err != nil {
		t.Fatalf("webhook: %v", err)
	}

	profile, _ := svc.Profile(ctx, u.ID)
	if profile.MinutesRemaining != 0 || profile.PaidStatus {
		t.Fatalf("failed payment must not credit: %+v", profile)
	}
	got, _ := svc.ListTransactions(ctx, u.ID)
	if len(got) != 1 || got[0].Status != TransactionFailed {
		t.Fatalf("transaction status not recorded: %+v", got)
	}
	notifier.mu.Lock()
	sent := len(notifier.sent)
	notifier.mu.Unlock()
	if sent != 0 {
		t.Fatalf("failed payment must not notify, got %d", sent)
	}
}

func TestHandleWebhook_UnknownTransaction(t *testing.T) {
	svc, _ := newTestService(t)
	if err := svc.HandleWebhook(context.Background(), "missing", string(TransactionCompleted), "", nil); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestListTransactions_ScopedToUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	alice, _ := svc.Register(ctx, "alice", "alice@example.com", "hunter2pass")
	bob, _ := svc.Register(ctx, "bob", "bob@example.com", "hunter2pass")

	for i := 0; i < 2; i++ {
		if _, err := svc.CreateCheckout(ctx, alice.ID, 1, "usd", fmt.Sprintf("plan-%d", i)); err != nil {
			t.Fatalf("checkout: %v", err)
		}
	}
	if _, err := svc.CreateCheckout(ctx, bob.ID, 1, "usd", "other"); err != nil {
		t.Fatalf("checkout: %v", err)
	}

	got, err := svc.ListTransactions(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 transactions for alice, got %d", len(got))
	}
	for _, tx := range got {
		if tx.UserID != alice.ID {
			t.Fatalf("foreign transaction leaked: %+v", tx)
		}
	}
}
