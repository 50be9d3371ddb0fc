package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpressionCaptures(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want []string
	}{
		{
			name: "single capture",
			expr: `(call_expression (identifier) @fn)`,
			want: []string{"fn"},
		},
		{
			name: "several captures in declaration order",
			expr: `(call_expression function: (identifier) @fn arguments: (argument_list (identifier) @arg)) @root`,
			want: []string{"fn", "arg", "root"},
		},
		{
			name: "duplicate names reported once",
			expr: `[(identifier) @x (field_identifier) @x]`,
			want: []string{"x"},
		},
		{
			name: "no captures",
			expr: `(call_expression)`,
			want: nil,
		},
		{
			name: "dotted names",
			expr: `(function_declaration name: (identifier) @function.name)`,
			want: []string{"function.name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpressionCaptures(tt.expr))
		})
	}
}

func TestMutationRuleValidate(t *testing.T) {
	rule := MutationRule{
		Expression: `(call_expression (argument_list (identifier) @path)) @root`,
		Template:   []TemplateSegment{Literal("parentOf("), CaptureRef("path"), Literal(")")},
	}
	require.NoError(t, rule.Validate())
}

func TestMutationRuleValidateRejectsDanglingCapture(t *testing.T) {
	rule := MutationRule{
		Expression: `(call_expression) @root`,
		Template:   []TemplateSegment{CaptureRef("path")},
	}
	err := rule.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigInvalid)
}

func TestMutationRuleValidateRootAlwaysAvailable(t *testing.T) {
	// root is implicit even when the expression never writes @root.
	rule := MutationRule{
		Expression: `(call_expression)`,
		Template:   []TemplateSegment{CaptureRef(RootCapture)},
	}
	require.NoError(t, rule.Validate())
}

func TestMutationCollectionValidate(t *testing.T) {
	col := MutationCollection{
		Description: "rewrite path base calls",
		Language:    "go",
		Rules: []MutationRule{
			{Expression: `(call_expression) @root`, Template: []TemplateSegment{CaptureRef(RootCapture)}},
		},
	}
	require.NoError(t, col.Validate())

	col.Rules = append(col.Rules, MutationRule{
		Expression: `(identifier) @root`,
		Template:   []TemplateSegment{CaptureRef("ghost")},
	})
	err := col.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigInvalid)
	assert.Contains(t, err.Error(), "rule 1")
}
