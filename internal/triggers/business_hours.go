package triggers

import (
	"strings"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"github.com/Conversly/widget-engine/internal/core"
	"github.com/Conversly/widget-engine/internal/utils"
)

// Availability is the result of the business-hours gate.
type Availability struct {
	Open    bool
	Message string
}

// CheckBusinessHours reports whether the tenant is open at now. Tenants
// without a schedule are always open, and an unknown timezone counts as open.
func CheckBusinessHours(cfg core.AssistantConfig, now time.Time) Availability {
	// An enabled gate with no schedule entries is open, not closed all week.
	if !cfg.BusinessHours.Enabled || len(cfg.Schedule) == 0 {
		return Availability{Open: true}
	}

	tz := cfg.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		utils.Zlog.Warn("Business hours timezone not recognised, treating as open",
			zap.String("timezone", tz),
			zap.Error(err))
		return Availability{Open: true}
	}

	local := now.In(loc)
	day := local.Weekday().String()
	clock := local.Format("15:04")

	closed := Availability{Open: false, Message: offlineMessage(cfg)}
	for _, entry := range cfg.Schedule {
		if !strings.EqualFold(strings.TrimSpace(entry.Day), day) {
			continue
		}
		if !entry.Enabled {
			return closed
		}
		if clock >= entry.Start && clock <= entry.End {
			return Availability{Open: true}
		}
		return closed
	}
	return closed
}

func offlineMessage(cfg core.AssistantConfig) string {
	if cfg.HandoverOfflineMessage != "" {
		return cfg.HandoverOfflineMessage
	}
	return core.DefaultOfflineMessage
}
