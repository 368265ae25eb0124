package models

import "gorm.io/gorm"

// RiskAlert is the persisted copy of an evaluated alert. Evaluation
// itself never reads this table; rows exist so a user can review and
// acknowledge past warnings.
type RiskAlert struct {
	gorm.Model
	UserID         string `gorm:"index;not null" json:"user_id"`
	AlertType      string `gorm:"not null" json:"alert_type"`
	Severity       string `gorm:"not null" json:"severity"`
	Message        string `json:"message"`
	Recommendation string `json:"recommendation,omitempty"`
	Acknowledged   bool   `gorm:"default:false" json:"acknowledged"`
}
