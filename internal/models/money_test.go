package models

import (
	"encoding/json"
	"testing"

	"hotelbooking/internal/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoneyRejectsNegative(t *testing.T) {
	_, err := NewMoney(-1)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	m, err := NewMoney(0)
	require.NoError(t, err)
	assert.True(t, m.IsZero())
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		raw     string
		cents   int64
		wantErr bool
	}{
		{"100", 10000, false},
		{"99.5", 9950, false},
		{"100.25", 10025, false},
		{"0.01", 1, false},
		{"", 0, true},
		{"-1", 0, true},
		{"-0.50", 0, true},
		{"1.234", 0, true},
		{"1.", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			m, err := ParseMoney(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, apperrors.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cents, m.Cents())
		})
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := MustMoney(10000)
	b := MustMoney(2550)

	assert.Equal(t, int64(12550), a.Add(b).Cents())
	assert.Equal(t, int64(30000), a.Multiply(3).Cents())
	assert.Equal(t, int64(0), a.Multiply(-2).Cents())
	assert.Equal(t, int64(1500), a.Percent(15).Cents())
	assert.Equal(t, int64(383), b.Percent(15).Cents())
	assert.True(t, b.LessThan(a))
	assert.Equal(t, "125.50", a.Add(b).String())
}

func TestMoneyJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Total Money `json:"total"`
	}{Total: MustMoney(30000)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":300.00}`, string(data))

	var in struct {
		Total Money `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"total":125.5}`), &in))
	assert.Equal(t, int64(12550), in.Total.Cents())

	err = json.Unmarshal([]byte(`{"total":-3}`), &in)
	assert.Error(t, err)
}
