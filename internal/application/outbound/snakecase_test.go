package outbound

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnakeCase(t *testing.T) {
	tests := map[string]string{
		"name":            "name",
		"lastUpdated":     "last_updated",
		"nrr30":           "nrr_30",
		"mrrTotal":        "mrr_total",
		"HTMLLink":        "html_link",
		"customerFrom":    "customer_from",
		"Plan Tier":       "plan_tier",
		"already_snake":   "already_snake",
		"lastTouchByType": "last_touch_by_type",
		"":                "",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, snakeCase(in))
		})
	}
}
