package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertyDefinitionOf(t *testing.T) {
	agent := StringProperty("org.opencast.agent", "agent")

	p, err := agent.Of("mp-1", "capture-1")
	require.NoError(t, err)
	assert.Equal(t, "mp-1", p.MediaPackageID)
	assert.Equal(t, "org.opencast.agent", p.Namespace)
	assert.Equal(t, "agent", p.Name)
	assert.True(t, p.Value.Equal(StringValue("capture-1")))
	assert.Equal(t, agent, p.Definition())

	_, err = agent.Of("mp-1", 12)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = LongProperty("ns", "count").Of("mp-1", true)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestPropertyDefinitionPredicates(t *testing.T) {
	count := LongProperty("ns", "count")

	eq, ok := count.Eq(3).(PropertyEq)
	require.True(t, ok)
	assert.True(t, eq.Value.Equal(LongValue(3)))
	assert.Equal(t, count, eq.Definition)

	assert.Equal(t, PropertyExists{Definition: count}, count.Exists())
	assert.Equal(t, PropertyNotExists{Definition: count}, count.NotExists())
	assert.Equal(t, PropertyTarget{Definition: count}, count.Target())
}

func TestPropertyDefinitionValidate(t *testing.T) {
	assert.NoError(t, BooleanProperty("ns", "flag").Validate())
	assert.ErrorIs(t, PropertyDefinition{Namespace: "ns", ValueType: ValueTypeLong}.Validate(), ErrInvalidName)
	assert.ErrorIs(t, PropertyDefinition{Namespace: "ns", Name: "x", ValueType: "date"}.Validate(), ErrInvalidValueType)
	assert.ErrorIs(t, StringProperty("ns\x00x", "name").Validate(), ErrInvalidName)
	assert.ErrorIs(t, StringProperty("ns", "na\x00me").Validate(), ErrInvalidName)
}

func TestNamespace(t *testing.T) {
	ns := Namespace("org.opencast.scheduler")
	assert.Equal(t, NamespaceTarget{Namespace: "org.opencast.scheduler"}, ns.AllProperties())
	assert.Equal(t, StringProperty("org.opencast.scheduler", "agent"), ns.Str("agent"))
	assert.Equal(t, LongProperty("org.opencast.scheduler", "count"), ns.Long("count"))
	assert.Equal(t, BooleanProperty("org.opencast.scheduler", "optout"), ns.Boolean("optout"))
	assert.Equal(t, "org.opencast.scheduler:agent", ns.Str("agent").Key().String())
}

func TestSplitTargets(t *testing.T) {
	count := LongProperty("p", "count")
	snaps, f := SplitTargets([]Target{Snapshots(), PropertiesOf("p2"), count.Target()})
	assert.True(t, snaps)
	assert.False(t, f.All)
	assert.Equal(t, []string{"p2"}, f.Namespaces)
	assert.Equal(t, []PropertyName{{Namespace: "p", Name: "count"}}, f.Slots)

	assert.True(t, f.Matches(Property{Namespace: "p2", Name: "anything"}))
	assert.True(t, f.Matches(Property{Namespace: "p", Name: "count"}))
	assert.False(t, f.Matches(Property{Namespace: "p", Name: "agent"}))

	snaps, f = SplitTargets([]Target{Properties()})
	assert.False(t, snaps)
	assert.True(t, f.All)
	assert.False(t, f.Empty())

	_, f = SplitTargets([]Target{Snapshots()})
	assert.True(t, f.Empty())
}
