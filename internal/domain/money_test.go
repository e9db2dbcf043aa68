package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMoney_ToDecimal(t *testing.T) {
	m := NewMoney(1_050, "ZMW") // K10.50
	d := m.ToDecimal()
	assert.Equal(t, "10.5", d.String())
}

func TestMoney_String(t *testing.T) {
	assert.Equal(t, "25000.00 ZMW", NewMoney(2_500_000, "ZMW").String())
	assert.Equal(t, "0.05 ZMW", NewMoney(5, "ZMW").String())
}
