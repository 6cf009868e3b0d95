package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrder(t *testing.T) {
	tests := []struct {
		in      string
		want    Order
		wantErr bool
	}{
		{in: "version", want: Asc(OrderByVersion)},
		{in: "version:desc", want: Desc(OrderByVersion)},
		{in: "createdAt:ASC", want: Asc(OrderByCreatedAt)},
		{in: "p:count", want: ByProperty(LongProperty("p", "count"), false)},
		{in: "p:count:desc", want: ByProperty(LongProperty("p", "count"), true)},
		{in: "colour", wantErr: true},
		{in: "a:b:c:d", wantErr: true},
		{in: ":desc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOrder(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidOrder)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOrderStringRoundTrip(t *testing.T) {
	for _, o := range []Order{Desc(OrderByMediaPackageID), ByProperty(StringProperty("ns", "agent"), false)} {
		got, err := ParseOrder(o.String())
		require.NoError(t, err)
		assert.Equal(t, o, got)
	}
}
