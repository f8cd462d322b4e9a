package db

import "time"

const (
	CreditReasonSignup     = "signup_grant"
	CreditReasonAdminGrant = "admin_grant"
	CreditReasonGeneration = "fusion_generation"
)

// CreditLedgerEntry 是积分账本中的一条不可变记录，余额为所有金额之和。
type CreditLedgerEntry struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID uint  `gorm:"column:user_id;index;not null" json:"user_id"`
	User   *User `gorm:"foreignKey:UserID" json:"-"`

	// Amount 为带符号整数，正数为入账，负数为消费。
	Amount int    `gorm:"column:amount;not null" json:"amount"`
	Reason string `gorm:"column:reason;type:varchar(64);index;not null" json:"reason"`

	FusionID *uint `gorm:"column:fusion_id;index" json:"fusion_id,omitempty"`
}

// TableName 指定表名
func (CreditLedgerEntry) TableName() string {
	return "credit_ledger_entries"
}
