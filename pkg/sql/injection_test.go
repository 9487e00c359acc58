package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckIdentifier(t *testing.T) {
	valid := []string{"orders", "order_items", "public.orders", "_tmp", "col$1"}
	for _, name := range valid {
		assert.NoError(t, CheckIdentifier("table", name), name)
	}

	invalid := []string{
		"",
		"orders; DROP TABLE users",
		"1abc",
		"a b",
		"x' OR '1'='1",
		"a.b.c",
	}
	for _, name := range invalid {
		assert.Error(t, CheckIdentifier("table", name), name)
	}
}

func TestCheckIdentifiers_ReportsFirstFailure(t *testing.T) {
	err := CheckIdentifiers("column", []string{"id", "bad name", "other"})
	assert.ErrorContains(t, err, "bad name")
	assert.NoError(t, CheckIdentifiers("column", nil))
}

func TestCheckIdentifier_InjectionError(t *testing.T) {
	err := CheckIdentifier("table", "x' OR '1'='1")

	var injection *InjectionError
	require.ErrorAs(t, err, &injection)
	assert.Equal(t, "table", injection.Kind)
	assert.Equal(t, "x' OR '1'='1", injection.Name)
	assert.NotEmpty(t, injection.Fingerprint)

	assert.NotErrorAs(t, CheckIdentifier("table", ""), &injection)
}
