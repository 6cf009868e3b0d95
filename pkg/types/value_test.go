package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueOf(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    Value
		wantErr error
	}{
		{"bool", true, BooleanValue(true), nil},
		{"int widens to long", 42, LongValue(42), nil},
		{"int32 widens to long", int32(-7), LongValue(-7), nil},
		{"int64", int64(1 << 40), LongValue(1 << 40), nil},
		{"string", "agent", StringValue("agent"), nil},
		{"value passes through", LongValue(3), LongValue(3), nil},
		{"float is rejected", 1.5, Value{}, ErrTypeMismatch},
		{"nil is rejected", nil, Value{}, ErrTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValueOf(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
		})
	}
}

func TestValueEqualAcrossTypes(t *testing.T) {
	assert.False(t, StringValue("1").Equal(LongValue(1)))
	assert.False(t, BooleanValue(false).Equal(LongValue(0)))
	assert.False(t, Value{}.Equal(Value{}), "zero values never match")
	assert.True(t, StringValue("x").Equal(StringValue("x")))
}

func TestValueCompare(t *testing.T) {
	cmp, ok := LongValue(1).Compare(LongValue(2))
	assert.True(t, ok)
	assert.Equal(t, -1, cmp)

	cmp, ok = BooleanValue(true).Compare(BooleanValue(false))
	assert.True(t, ok)
	assert.Equal(t, 1, cmp)

	cmp, ok = StringValue("b").Compare(StringValue("b"))
	assert.True(t, ok)
	assert.Equal(t, 0, cmp)

	_, ok = StringValue("1").Compare(LongValue(1))
	assert.False(t, ok)
}

func TestValueEncodeRoundTrip(t *testing.T) {
	for _, v := range []Value{BooleanValue(true), LongValue(-12), StringValue("a b")} {
		got, err := ParseValue(v.Type(), v.Encode())
		require.NoError(t, err)
		assert.True(t, got.Equal(v))
	}
	_, err := ParseValue(ValueTypeLong, "twelve")
	assert.ErrorIs(t, err, ErrTypeMismatch)
	_, err = ParseValue("date", "2024")
	assert.ErrorIs(t, err, ErrInvalidValueType)
}

func TestValueJSON(t *testing.T) {
	data, err := json.Marshal(LongValue(5))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"long","value":5}`, string(data))

	var v Value
	require.NoError(t, json.Unmarshal([]byte(`{"type":"string","value":"x"}`), &v))
	assert.True(t, v.Equal(StringValue("x")))

	err = json.Unmarshal([]byte(`{"type":"boolean","value":"yes"}`), &v)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestParseValueType(t *testing.T) {
	vt, err := ParseValueType("long")
	require.NoError(t, err)
	assert.Equal(t, ValueTypeLong, vt)

	_, err = ParseValueType("integer")
	assert.ErrorIs(t, err, ErrInvalidValueType)
}
