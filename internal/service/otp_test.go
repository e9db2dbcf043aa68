package service

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateOTPFormat(t *testing.T) {
	sixDigits := regexp.MustCompile(`^\d{6}$`)
	for i := 0; i < 50; i++ {
		code, err := generateOTP()
		require.NoError(t, err)
		require.Regexp(t, sixDigits, code)
	}
}
