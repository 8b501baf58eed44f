package dynafield

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOperator(t *testing.T) {
	tests := map[string]Operator{
		"==": Equal,
		"=":  Equal,
		"!=": NotEqual,
		"<>": NotEqual,
		"<":  LessThan,
		"<=": LessThanEqual,
		">":  GreaterThan,
		">=": GreaterThanEqual,
	}
	for symbol, want := range tests {
		got, err := ParseOperator(symbol)
		require.NoError(t, err, symbol)
		assert.Equal(t, want, got, symbol)
	}

	_, err := ParseOperator("~=")
	assert.ErrorIs(t, err, ErrUnsupportedFilter)
}

func TestOperatorString(t *testing.T) {
	assert.Equal(t, "==", Equal.String())
	assert.Equal(t, ">=", GreaterThanEqual.String())
	assert.Equal(t, "Operator(42)", Operator(42).String())
}
