package accounts

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	Username         string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	Email            string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"email"`
	PasswordHash     string    `gorm:"type:varchar(128);not null" json:"-"`
	Role             string    `gorm:"type:varchar(16);not null" json:"role"`
	PaidStatus       bool      `json:"paid_status"`
	MinutesRemaining int       `json:"minutes_remaining"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)

type Transaction struct {
	ID         string            `gorm:"primaryKey;size:26" json:"transaction_id"` // ULID length
	UserID     string            `gorm:"size:36;index;not null" json:"user_id"`
	Amount     float64           `json:"amount"`
	Currency   string            `gorm:"type:varchar(8)" json:"currency"`
	PlanName   string            `gorm:"type:varchar(64)" json:"plan_name"`
	Status     TransactionStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	GatewayURL string            `gorm:"type:text" json:"gateway_url"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func (Transaction) TableName() string { return "transactions" }
