package admin

import (
	"testing"

	"github.com/playmatatu/carrom/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyToken(t *testing.T) {
	hashed, err := HashToken("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hashed)

	assert.True(t, VerifyAdminToken(hashed, "s3cret"))
	assert.False(t, VerifyAdminToken(hashed, "guess"))
	assert.False(t, VerifyAdminToken("not-a-hash", "s3cret"))
}

func TestIPAllowed(t *testing.T) {
	open := &models.AdminAccount{Username: "ops"}
	assert.True(t, IPAllowed(open, "10.0.0.1"))

	locked := &models.AdminAccount{Username: "ops", AllowedIPs: []string{"127.0.0.1", "10.0.0.2"}}
	assert.True(t, IPAllowed(locked, "10.0.0.2"))
	assert.False(t, IPAllowed(locked, "10.0.0.1"))
}
