package app

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banquito-core/formalization-backend/internal/platform/envutil"
	"github.com/banquito-core/formalization-backend/internal/platform/logger"
	"github.com/banquito-core/formalization-backend/internal/services"
)

type Config struct {
	Port           string
	OriginationURL string
	RedisAddr      string
	CacheTTL       time.Duration
	Policy         services.SchedulePolicy
}

// policyFile is the optional YAML override for the schedule policy,
// pointed at by POLICY_FILE.
type policyFile struct {
	AdjustWeekends  *bool `yaml:"adjust_weekends"`
	AbsorbRemainder *bool `yaml:"absorb_remainder"`
	DueSoonDays     *int  `yaml:"due_soon_days"`
}

func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		Port:           envutil.String("PORT", "8080"),
		OriginationURL: envutil.String("ORIGINATION_URL", "http://localhost:8081"),
		RedisAddr:      envutil.String("REDIS_ADDR", ""),
		CacheTTL:       time.Duration(envutil.Int("ORIGINATION_CACHE_TTL", 900)) * time.Second,
		Policy:         services.DefaultSchedulePolicy(),
	}

	path := envutil.String("POLICY_FILE", "")
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read policy file %s: %w", path, err)
	}
	var pf policyFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return cfg, fmt.Errorf("parse policy file %s: %w", path, err)
	}
	if pf.AdjustWeekends != nil {
		cfg.Policy.AdjustWeekends = *pf.AdjustWeekends
	}
	if pf.AbsorbRemainder != nil {
		cfg.Policy.AbsorbRemainder = *pf.AbsorbRemainder
	}
	if pf.DueSoonDays != nil && *pf.DueSoonDays > 0 {
		cfg.Policy.DueSoonDays = *pf.DueSoonDays
	}
	log.Info("schedule policy loaded",
		"adjust_weekends", cfg.Policy.AdjustWeekends,
		"absorb_remainder", cfg.Policy.AbsorbRemainder,
		"due_soon_days", cfg.Policy.DueSoonDays,
	)
	return cfg, nil
}
