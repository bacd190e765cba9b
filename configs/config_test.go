package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFloat(t *testing.T) {
	os.Setenv("TEST_FEE_PERCENT", "7.5")
	defer os.Unsetenv("TEST_FEE_PERCENT")
	assert.Equal(t, 7.5, Float("TEST_FEE_PERCENT", 10))

	assert.Equal(t, 10.0, Float("TEST_FEE_PERCENT_MISSING", 10))

	os.Setenv("TEST_FEE_PERCENT_BAD", "seven")
	defer os.Unsetenv("TEST_FEE_PERCENT_BAD")
	assert.Equal(t, 10.0, Float("TEST_FEE_PERCENT_BAD", 10))
}

func TestInt(t *testing.T) {
	os.Setenv("TEST_MAX_REVISIONS", "3")
	defer os.Unsetenv("TEST_MAX_REVISIONS")
	assert.Equal(t, 3, Int("TEST_MAX_REVISIONS", 2))

	assert.Equal(t, 2, Int("TEST_MAX_REVISIONS_MISSING", 2))

	os.Setenv("TEST_MAX_REVISIONS_BAD", "two")
	defer os.Unsetenv("TEST_MAX_REVISIONS_BAD")
	assert.Equal(t, 2, Int("TEST_MAX_REVISIONS_BAD", 2))
}
