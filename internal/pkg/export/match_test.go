package export

import (
	"testing"

	"github.com/endorses/lcdissect/internal/pkg/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCondition(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "tcp", want: "tcp"},
		{in: "udp.port == 53", want: "udp.port == 53"},
		{in: "  demo.summary   contains  a b ", want: "demo.summary contains a b"},
		{in: "ip.src eq 10.0.0.1", want: "ip.src eq 10.0.0.1"},
		{in: "udp.port ==", wantErr: true},
		{in: "udp.port ~~ 53", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := ParseCondition(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrCondition)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.String())
		})
	}
}

func TestConditionMatch(t *testing.T) {
	tests := []struct {
		cond string
		want bool
	}{
		{cond: "demo", want: true},
		{cond: "demo.len == 4", want: true},
		{cond: "demo.len != 4", want: false},
		{cond: "demo.len > 3", want: true},
		{cond: "demo.len le 3", want: false},
		{cond: "demo.addr == 10.0.0.1", want: true},
		{cond: "demo.addr == 10.0.0.3", want: false},
		{cond: "demo.summary contains k", want: true},
		{cond: "demo.summary matches ^o", want: true},
		{cond: "demo.summary == \"no\"", want: false},
	}

	tree := demoTree(t)
	for _, tt := range tests {
		t.Run(tt.cond, func(t *testing.T) {
			c, err := ParseCondition(tt.cond)
			require.NoError(t, err)
			got, err := c.Match(tree)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConditionMatchErrors(t *testing.T) {
	tree := demoTree(t)

	c, err := ParseCondition("demo.nope == 1")
	require.NoError(t, err)
	_, err = c.Match(tree)
	assert.ErrorIs(t, err, proto.ErrFieldNotFound)

	c, err = ParseCondition("demo.len contains 4")
	require.NoError(t, err)
	_, err = c.Match(tree)
	assert.ErrorIs(t, err, ErrCondition)

	c, err = ParseCondition("demo.len == seventy")
	require.NoError(t, err)
	_, err = c.Match(tree)
	assert.ErrorIs(t, err, ErrCondition)
}
