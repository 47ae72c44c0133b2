// SPDX-License-Identifier: GPL-3.0-only

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VulnerabilityLevel string
type VulnerabilityType string

const (
	LevelInfo     VulnerabilityLevel = "info"
	LevelLow      VulnerabilityLevel = "low"
	LevelMedium   VulnerabilityLevel = "medium"
	LevelHigh     VulnerabilityLevel = "high"
	LevelCritical VulnerabilityLevel = "critical"
)

const (
	TypeWeb            VulnerabilityType = "web"
	TypeInfrastructure VulnerabilityType = "infrastructure"
	TypeHardware       VulnerabilityType = "hardware"
)

type Vulnerability struct {
	ID                uuid.UUID          `gorm:"type:uuid;primaryKey"`
	Name              string             `gorm:"size:255;not null;index"`
	Level             VulnerabilityLevel `gorm:"size:16;not null"`
	VulnType          VulnerabilityType  `gorm:"size:32;not null"`
	Scope             *string            `gorm:"size:255"`
	ProtocolInterface *string            `gorm:"size:255"`
	CvssScore         *float64
	CvssVector        *string `gorm:"size:128"`
	Description       string  `gorm:"type:text"`
	Risk              string  `gorm:"type:text"`
	Recommendation    string  `gorm:"type:text"`
	TagOrder          *string `gorm:"size:64"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (vuln *Vulnerability) BeforeCreate(tx *gorm.DB) (err error) {
	if vuln.ID == uuid.Nil {
		vuln.ID = uuid.New()
	}
	return
}

func init() {
	AllModels = append(AllModels, &Vulnerability{})
}
