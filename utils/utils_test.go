package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCurrencyIDR(t *testing.T) {
	tests := map[string]string{
		"0":          "Rp 0",
		"500":        "Rp 500",
		"50000":      "Rp 50.000",
		"15000.50":   "Rp 15.000,50",
		"1234567.89": "Rp 1.234.567,89",
		"-25000":     "Rp -25.000",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatCurrencyIDR(decimal.RequireFromString(in)), in)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("s3cret")
	tok, err := GenerateToken(secret, "user-9", RoleCashier, "outlet-1", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "user-9", claims.UserID)
	assert.Equal(t, RoleCashier, claims.Role)
	assert.Equal(t, "outlet-1", claims.OutletID)

	_, err = ParseToken([]byte("other"), tok)
	assert.Error(t, err)

	expired, err := GenerateToken(secret, "user-9", RoleCashier, "outlet-1", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(secret, expired)
	assert.Error(t, err)

	noUser, err := GenerateToken(secret, "", RoleCashier, "outlet-1", time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(secret, noUser)
	assert.Error(t, err)
}

func TestParseTokenRejectsOtherAlgorithms(t *testing.T) {
	claims := &CustomClaims{UserID: "user-9", Role: RoleOwner}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseToken([]byte("s3cret"), tok)
	assert.Error(t, err)
}

func TestRespondHelpers(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	RespondJSON(c, http.StatusCreated, "created", gin.H{"id": "1"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"status":true,"message":"created","data":{"id":"1"}}`, w.Body.String())

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	RespondErrorDetail(c, http.StatusConflict, assert.AnError, gin.H{"current": "NEW"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"status":false,"message":"`+assert.AnError.Error()+`","error":{"current":"NEW"}}`, w.Body.String())
}

func TestInitLogger(t *testing.T) {
	InitLogger("debug")
	assert.Equal(t, logrus.DebugLevel, InfoLogger.GetLevel())
	assert.Equal(t, logrus.DebugLevel, ErrorLogger.GetLevel())

	InitLogger("nonsense")
	assert.Equal(t, logrus.InfoLevel, InfoLogger.GetLevel())
	assert.Equal(t, logrus.InfoLevel, ErrorLogger.GetLevel())

	InitLogger("error")
	assert.Equal(t, logrus.WarnLevel, ErrorLogger.GetLevel())
}
