package testdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetTestDatabaseURL(t *testing.T) {
	t.Setenv(EnvDatabaseURL, "")
	t.Setenv(EnvTestDBURL, "")
	assert.Empty(t, GetTestDatabaseURL())
	assert.False(t, IsIntegrationTestEnvironment())

	t.Setenv(EnvTestDBURL, "postgres://localhost/scry_test")
	assert.Equal(t, "postgres://localhost/scry_test", GetTestDatabaseURL())

	t.Setenv(EnvDatabaseURL, "postgres://localhost/scry")
	assert.Equal(t, "postgres://localhost/scry", GetTestDatabaseURL())
	assert.True(t, IsIntegrationTestEnvironment())
}

func TestOpenSkipsWithoutDatabase(t *testing.T) {
	t.Setenv(EnvDatabaseURL, "")
	t.Setenv(EnvTestDBURL, "")

	skipped := false
	t.Run("open", func(t *testing.T) {
		defer func() { skipped = t.Skipped() }()
		Open(t)
	})
	assert.True(t, skipped)
}
