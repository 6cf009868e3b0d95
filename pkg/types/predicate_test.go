package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAndOrFold(t *testing.T) {
	a := OrganizationIs("org")
	b := MediaPackageIs("mp")
	c := IsLatestVersion()

	tests := []struct {
		name string
		got  Predicate
		want Predicate
	}{
		{"empty and", And(), AlwaysTrue{}},
		{"empty or", Or(), AlwaysTrue{}},
		{"single and", And(a), a},
		{"nil skipped", And(nil, a, nil), a},
		{"left fold", And(a, b, c), AndPredicate{Left: AndPredicate{Left: a, Right: b}, Right: c}},
		{"or fold", Or(a, b), OrPredicate{Left: a, Right: b}},
		{"not nil", Not(nil), NotPredicate{Operand: AlwaysTrue{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestNamedLabels(t *testing.T) {
	p := LongProperty("p", "count")
	q := Named(And(
		Named(Or(p.Eq(1), p.Eq(2)), "small"),
		Named(Not(HasSeries()), "loose"),
	), "root")

	assert.Equal(t, []string{"root", "small", "loose"}, Labels(q))
	assert.Equal(t, OrganizationIs("x"), Named(OrganizationIs("x"), "ignored"))
	assert.Equal(t, `root:(small:(p:count = 1 OR p:count = 2) AND loose:NOT series exists)`, q.String())
}

func TestValidate(t *testing.T) {
	count := LongProperty("p", "count")
	agent := StringProperty("p", "agent")

	tests := []struct {
		name    string
		p       Predicate
		wantErr error
	}{
		{"nil", nil, nil},
		{"leaf", SeriesIs("s"), nil},
		{"typed eq", count.Eq(int64(1)), nil},
		{"wrong type", count.Eq("1"), ErrTypeMismatch},
		{"unsupported go type", agent.Eq(1.5), ErrTypeMismatch},
		{"nested mismatch", And(agent.Exists(), Or(OrganizationIs("o"), Not(agent.Eq(false)))), ErrTypeMismatch},
		{"unnamed slot", PropertyExists{Definition: PropertyDefinition{ValueType: ValueTypeLong}}, ErrInvalidName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.p)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOrganizationIDs(t *testing.T) {
	p := And(OrganizationIs("a"), Or(MediaPackageIs("mp"), Not(OrganizationIs("b"))))
	assert.Equal(t, []string{"a", "b"}, OrganizationIDs(p))
	assert.Empty(t, OrganizationIDs(Always()))
}
