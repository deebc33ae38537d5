package apierror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code int
		want Kind
	}{
		{0, KindNone},
		{1, KindInvalidTimestamps},
		{30, KindSignatureInvalid},
		{31, KindSignatureInvalid},
		{32, KindInvalidEmail},
		{73, KindCannotConsumeAttempts},
		{74, KindCannotConsumeBonus},
		{131, KindEulaNotFound},
		{132, KindPolicyNotFound},
		{158, KindConsumableExhausted},
		{159, KindCannotConsumeConsumable},
		{500, KindServerError500},
		{1100, KindBadResult},
		{2, KindOther},
		{-1, KindOther},
		{99999, KindOther},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("code %d", tc.code), func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, Classify(tc.code))
		})
	}
}

func TestClassifyValue(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		value any
		want  Kind
	}{
		{"absent code means success", nil, KindNone},
		{"numeric string", "30", KindSignatureInvalid},
		{"zero string", "0", KindNone},
		{"non-numeric string", "oops", KindOther},
		{"json number", float64(158), KindConsumableExhausted},
		{"int", 1100, KindBadResult},
		{"unsupported type", []any{1}, KindOther},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, ClassifyValue(tc.value))
		})
	}
}

func TestErrorEquality(t *testing.T) {
	t.Parallel()

	t.Run("wrapped detail does not affect equality", func(t *testing.T) {
		t.Parallel()

		wrapped := Wrap(KindPurchaseFailed, errors.New("store unavailable"))
		assert.ErrorIs(t, wrapped, New(KindPurchaseFailed))
		assert.NotErrorIs(t, wrapped, New(KindRestoreFailed))
	})

	t.Run("details stay reachable through Unwrap", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("receipt missing")
		wrapped := Wrap(KindPurchaseReceiptValidationFailed, cause)
		assert.ErrorIs(t, wrapped, cause)
	})

	t.Run("non-taxonomy targets never match", func(t *testing.T) {
		t.Parallel()

		assert.NotErrorIs(t, New(KindOther), errors.New("other"))
	})
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "noConnection", New(KindNoConnection).Error())
	assert.Equal(t,
		"purchaseFailed: store unavailable",
		Wrap(KindPurchaseFailed, errors.New("store unavailable")).Error(),
	)
}
