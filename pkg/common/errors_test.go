package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindsMatchSentinels(t *testing.T) {
	cause := errors.New("connection refused")

	err := fmt.Errorf("listing devices: %w", NewTransportError("GET /v1.0/users/x/devices", cause))

	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrVendor)
	assert.Equal(t, ErrorKindTransport, Kind(err))
}

func TestErrorMessage(t *testing.T) {
	err := NewVendorError("device status", "permission deny")
	assert.Equal(t, "vendor error: device status: permission deny", err.Error())

	err = NewConfigError("TUYA_ACCESS_ID is not set")
	assert.Equal(t, "config error: TUYA_ACCESS_ID is not set", err.Error())
	assert.ErrorIs(t, err, ErrConfig)
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, ErrorKind(""), Kind(errors.New("plain")))
	assert.Equal(t, ErrorKind(""), Kind(nil))
}

func TestInvalidInputError(t *testing.T) {
	err := NewInvalidError("save prediction", "month must be between 1 and 12")
	assert.Equal(t, "invalid input error: save prediction: month must be between 1 and 12", err.Error())
	assert.ErrorIs(t, err, ErrInvalid)
	assert.NotErrorIs(t, err, ErrStore)
}
