package plan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestValidateAcceptsWellFormedPlans(t *testing.T) {
	cases := []struct {
		name string
		plan Plan
	}{
		{
			name: "empty operations",
			plan: Plan{Summary: "nothing to do"},
		},
		{
			name: "create without required fields",
			plan: Plan{Summary: "try a create", Operations: []Operation{
				{Action: ActionCreate, Date: strPtr("2026-09-01")},
			}},
		},
		{
			name: "full batch",
			plan: Plan{Summary: "reshuffle", Operations: []Operation{
				{Action: ActionCreate, Title: strPtr("Standup"), Date: strPtr("2026-09-01"), Time: strPtr("09:00")},
				{Action: ActionUpdate, ID: 3, Time: strPtr("15:30")},
				{Action: ActionDelete, ID: 7},
			}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Nil(t, Validate(&tc.plan))
		})
	}
}

func TestValidateRejectsBrokenPlans(t *testing.T) {
	cases := []struct {
		name  string
		plan  Plan
		field string
		rule  string
	}{
		{
			name:  "missing summary",
			plan:  Plan{Summary: "   "},
			field: "summary",
			rule:  "required",
		},
		{
			name: "unknown action",
			plan: Plan{Summary: "s", Operations: []Operation{
				{Action: "archive", ID: 1},
			}},
			field: "operations[0].action",
			rule:  "enum",
		},
		{
			name: "create with id",
			plan: Plan{Summary: "s", Operations: []Operation{
				{Action: ActionCreate, ID: 4, Title: strPtr("x")},
			}},
			field: "operations[0].id",
			rule:  "forbidden",
		},
		{
			name: "update without id",
			plan: Plan{Summary: "s", Operations: []Operation{
				{Action: ActionUpdate, Time: strPtr("10:00")},
			}},
			field: "operations[0].id",
			rule:  "required",
		},
		{
			name: "update without changes",
			plan: Plan{Summary: "s", Operations: []Operation{
				{Action: ActionUpdate, ID: 2},
			}},
			field: "operations[0].action",
			rule:  "no_changes",
		},
		{
			name: "delete without id",
			plan: Plan{Summary: "s", Operations: []Operation{
				{Action: ActionDelete},
			}},
			field: "operations[0].id",
			rule:  "required",
		},
		{
			name: "bad date format",
			plan: Plan{Summary: "s", Operations: []Operation{
				{Action: ActionUpdate, ID: 1, Date: strPtr("Sep 1st")},
			}},
			field: "operations[0].date",
			rule:  "format",
		},
		{
			name: "bad time format",
			plan: Plan{Summary: "s", Operations: []Operation{
				{Action: ActionUpdate, ID: 1, Time: strPtr("25:61")},
			}},
			field: "operations[0].time",
			rule:  "format",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verr := Validate(&tc.plan)
			require.NotNil(t, verr)
			found := false
			for _, v := range verr.Violations {
				if v.Field == tc.field && v.Rule == tc.rule {
					found = true
				}
			}
			assert.True(t, found, "expected violation %s/%s, got %v", tc.field, tc.rule, verr.Violations)
		})
	}
}

func TestValidateCapsOperationCount(t *testing.T) {
	ops := make([]Operation, MaxOperations+1)
	for i := range ops {
		ops[i] = Operation{Action: ActionDelete, ID: i + 1}
	}

	verr := Validate(&Plan{Summary: "too many", Operations: ops})
	require.NotNil(t, verr)
	assert.Equal(t, "operations", verr.Violations[0].Field)
	assert.Equal(t, "max", verr.Violations[0].Rule)

	assert.Nil(t, Validate(&Plan{Summary: "at cap", Operations: ops[:MaxOperations]}))
}

func TestValidateIsDeterministic(t *testing.T) {
	plan := Plan{Summary: "", Operations: []Operation{
		{Action: "noop"},
		{Action: ActionUpdate},
	}}

	first := Validate(&plan)
	second := Validate(&plan)
	require.NotNil(t, first)
	assert.Equal(t, first.Violations, second.Violations)
}

func TestParseToleratesFencesAndProse(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"bare json", `{"summary": "ok", "operations": []}`},
		{"fenced", "```json\n{\"summary\": \"ok\", \"operations\": []}\n```"},
		{"prose around", "Sure, here is the plan:\n{\"summary\": \"ok\", \"operations\": []}\nLet me know!"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, verr := Parse(tc.raw)
			require.Nil(t, verr)
			assert.Equal(t, "ok", p.Summary)
			assert.Empty(t, p.Operations)
		})
	}
}

func TestParseRejectsNonJSON(t *testing.T) {
	cases := []string{
		"I cannot help with that.",
		"",
		"{\"summary\": \"ok\", \"operations\": [}",
	}

	for _, raw := range cases {
		p, verr := Parse(raw)
		assert.Nil(t, p)
		require.NotNil(t, verr)
		assert.Equal(t, "plan", verr.Violations[0].Field)
		assert.Equal(t, "json", verr.Violations[0].Rule)
	}
}

func TestParseSurfacesValidationViolations(t *testing.T) {
	raw := `{"summary": "move it", "operations": [{"action": "update", "time": "10:00"}]}`
	p, verr := Parse(raw)
	assert.Nil(t, p)
	require.NotNil(t, verr)
	assert.Contains(t, verr.Error(), "operations[0].id")
}

func TestFormatInstructionsCoverEveryField(t *testing.T) {
	instructions := FormatInstructions()
	for _, f := range operationFields {
		assert.True(t, strings.Contains(instructions, `"`+f.Name+`"`), "missing field %s", f.Name)
	}
}
