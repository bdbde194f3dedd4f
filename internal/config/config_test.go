package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"SERVER_ADDRESS", "MONGO_URI", "CONTACT_STORE", "QR_SIZE", "SCAN_TIMEOUT", "CONTACTS_DEDUPE_ON_WRITE"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, "", cfg.ServerAddress, "explicitly empty values are kept")
	assert.Equal(t, StoreFile, cfg.ContactStore)
	assert.Equal(t, 256, cfg.QRSize)
	assert.Equal(t, 5*time.Second, cfg.ScanTimeout)
	assert.False(t, cfg.DedupeOnWrite)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", ":9090")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("CONTACT_STORE", "")
	t.Setenv("QR_SIZE", "120")
	t.Setenv("QR_MARGIN", "1")
	t.Setenv("SCAN_TIMEOUT", "3")
	t.Setenv("CONTACTS_DEDUPE_ON_WRITE", "true")
	t.Setenv("ANON_SCAN_RPS", "0.5")
	t.Setenv("RECAPTCHA_MIN_SCORE", "0.7")

	cfg := Load()
	assert.Equal(t, ":9090", cfg.ServerAddress)
	assert.Equal(t, StoreMongo, cfg.ContactStore)
	assert.Equal(t, 120, cfg.QRSize)
	assert.Equal(t, 1, cfg.QRMargin)
	assert.Equal(t, 3*time.Second, cfg.ScanTimeout)
	assert.True(t, cfg.DedupeOnWrite)
	assert.InDelta(t, 0.5, cfg.AnonScanRPS, 1e-9)
	assert.InDelta(t, 0.7, cfg.RecaptchaMinScore, 1e-9)
}

func TestLoad_ExplicitStore(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("CONTACT_STORE", "Firestore")
	assert.Equal(t, StoreFirestore, Load().ContactStore)
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("X_DUR", "250ms")
	assert.Equal(t, 250*time.Millisecond, getEnvDuration("X_DUR", time.Second))
	t.Setenv("X_DUR", "garbage")
	assert.Equal(t, time.Second, getEnvDuration("X_DUR", time.Second))
}

func TestGetEnvInt_Invalid(t *testing.T) {
	t.Setenv("X_INT", "ten")
	assert.Equal(t, 7, getEnvInt("X_INT", 7))
}
