package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Economy is the guild-tunable rule document: farm constants, crop prices,
// the role permission policy and feature toggles. Loaded from a JSON file so
// moderators can adjust rates without a redeploy.
type Economy struct {
	MinimumFarmNeeds decimal.Decimal
	OptimalIncome    decimal.Decimal
	SuboptimalBase   decimal.Decimal

	BasicCropPrice decimal.Decimal
	OtherCropPrice decimal.Decimal
	StapleCrops    []string

	AnimalTypes []string
	PlantTypes  []string

	// Action name -> role ID allow-list. Role IDs only; human-readable role
	// names are rejected at load because they are not stable identifiers.
	RolePolicy map[string][]string

	IconVerification bool
	IconTemplateDir  string

	EvidenceTimeout    time.Duration
	SessionTTL         time.Duration
	PendingReminderAge time.Duration
}

func LoadEconomy(path string) (*Economy, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	v.SetDefault("minimum_farm_needs", 100)
	v.SetDefault("optimal_income", 160)
	v.SetDefault("suboptimal_base", 60)
	v.SetDefault("basic_crop_price", 0.15)
	v.SetDefault("other_crop_price", 0.20)
	v.SetDefault("staple_crops", []string{"Milho", "Trigo", "Junco"})
	v.SetDefault("animal_types", []string{"Vaca", "Porco", "Galinha", "Ovelha"})
	v.SetDefault("plant_types", []string{"Milho", "Trigo", "Junco"})
	v.SetDefault("icon_verification", true)
	v.SetDefault("icon_template_dir", "assets/icons")
	v.SetDefault("evidence_timeout_seconds", 180)
	v.SetDefault("session_ttl_seconds", 600)
	v.SetDefault("pending_reminder_minutes", 60)

	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return nil, fmt.Errorf("failed to read economy config %s: %w", path, err)
		}
		// Missing file means defaults; a broken file is fatal.
	}

	eco := &Economy{
		MinimumFarmNeeds:   decimal.NewFromInt(v.GetInt64("minimum_farm_needs")),
		OptimalIncome:      decimal.NewFromInt(v.GetInt64("optimal_income")),
		SuboptimalBase:     decimal.NewFromInt(v.GetInt64("suboptimal_base")),
		BasicCropPrice:     decimal.NewFromFloat(v.GetFloat64("basic_crop_price")),
		OtherCropPrice:     decimal.NewFromFloat(v.GetFloat64("other_crop_price")),
		StapleCrops:        v.GetStringSlice("staple_crops"),
		AnimalTypes:        v.GetStringSlice("animal_types"),
		PlantTypes:         v.GetStringSlice("plant_types"),
		RolePolicy:         v.GetStringMapStringSlice("role_policy"),
		IconVerification:   v.GetBool("icon_verification"),
		IconTemplateDir:    v.GetString("icon_template_dir"),
		EvidenceTimeout:    time.Duration(v.GetInt64("evidence_timeout_seconds")) * time.Second,
		SessionTTL:         time.Duration(v.GetInt64("session_ttl_seconds")) * time.Second,
		PendingReminderAge: time.Duration(v.GetInt64("pending_reminder_minutes")) * time.Minute,
	}

	if err := validateRolePolicy(eco.RolePolicy); err != nil {
		return nil, err
	}

	return eco, nil
}

// IsStaple reports whether a crop is on the configured staple list and thus
// settles at the basic rate.
func (e *Economy) IsStaple(crop string) bool {
	for _, c := range e.StapleCrops {
		if c == crop {
			return true
		}
	}
	return false
}

func validateRolePolicy(policy map[string][]string) error {
	for action, roles := range policy {
		for _, id := range roles {
			if !allDigits(id) {
				return fmt.Errorf("role_policy.%s: %q is not a role ID (role names are not accepted)", action, id)
			}
		}
	}
	return nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
