package models

import "time"

// ExcludedAd marks a listing number that automation must never touch.
type ExcludedAd struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	AdNumber string `gorm:"type:varchar(40);not null;uniqueIndex" json:"ad_number"`
	Reason   string `gorm:"type:text" json:"reason"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (ExcludedAd) TableName() string {
	return "excluded_ads"
}
