package order

import (
	"testing"

	"github.com/huandu/go-sqlbuilder"
	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/thistle/pkg/models"
)

func TestApplyResultFilter(t *testing.T) {
	tests := []struct {
		name      string
		filter    models.ResultFilter
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "flagged by default",
			filter:    models.ResultFilter{},
			wantWhere: "WHERE group_id = $1 AND is_blacklisted = $2",
			wantArgs:  []any{int64(7), true},
		},
		{
			name:      "all orders",
			filter:    models.ResultFilter{All: true},
			wantWhere: "WHERE group_id = $1",
			wantArgs:  []any{int64(7)},
		},
		{
			name:      "checked clean",
			filter:    models.ResultFilter{RiskLevel: models.RiskLevelNone},
			wantWhere: "WHERE group_id = $1 AND is_blacklist_checked = $2 AND is_blacklisted = $3",
			wantArgs:  []any{int64(7), true, false},
		},
		{
			name:      "checked clean ignores all",
			filter:    models.ResultFilter{RiskLevel: models.RiskLevelNone, All: true},
			wantWhere: "WHERE group_id = $1 AND is_blacklist_checked = $2 AND is_blacklisted = $3",
			wantArgs:  []any{int64(7), true, false},
		},
		{
			name:      "low stays flagged with all",
			filter:    models.ResultFilter{RiskLevel: models.RiskLevelLow, All: true},
			wantWhere: "WHERE group_id = $1 AND is_blacklisted = $2 AND blacklist_risk_level = $3",
			wantArgs:  []any{int64(7), true, models.RiskLevelLow},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
			sb.Select("id")
			sb.From(table)
			applyResultFilter(sb, 7, tt.filter)

			query, args := sb.Build()
			assert.Equal(t, "SELECT id FROM orders "+tt.wantWhere, query)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}
