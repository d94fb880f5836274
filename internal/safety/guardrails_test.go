package safety

import (
	"context"
	"errors"
	"testing"
	"testing/quick"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateBlastRadius_TableDriven(t *testing.T) {
	cases := []struct {
		name     string
		affected int
		total    int
		maxRatio float64
		want     bool
	}{
		{"empty population always safe", 3, 0, 0.1, true},
		{"within ratio", 1, 5, 0.3, true},
		{"exactly at boundary is inclusive", 3, 10, 0.3, true},
		{"exceeds ratio", 4, 10, 0.3, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ValidateBlastRadius(tc.affected, tc.total, tc.maxRatio))
		})
	}
}

func TestValidateBlastRadius_PropertyMatchesDefinition(t *testing.T) {
	f := func(affected, total uint8) bool {
		a, tt := int(affected), int(total)
		maxRatio := 0.5
		got := ValidateBlastRadius(a, tt, maxRatio)
		want := tt == 0 || float64(a)/float64(tt) <= maxRatio
		return got == want
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestRequireConfirmation(t *testing.T) {
	err := RequireConfirmation("prod-payments", "prod-*", false)
	var confirmErr *ConfirmationRequiredError
	assert.ErrorAs(t, err, &confirmErr)

	assert.NoError(t, RequireConfirmation("prod-payments", "prod-*", true))
	assert.NoError(t, RequireConfirmation("staging", "prod-*", false))
	assert.NoError(t, RequireConfirmation("anything", "", false))
}

func TestClampTimeoutSeconds(t *testing.T) {
	assert.Equal(t, 1, ClampTimeoutSeconds(0))
	assert.Equal(t, 1, ClampTimeoutSeconds(-5))
	assert.Equal(t, 120, ClampTimeoutSeconds(500))
	assert.Equal(t, 30, ClampTimeoutSeconds(30))
}

func TestWithTimeout_ExpiryRaisesOperationTimeout(t *testing.T) {
	err := WithTimeout(context.Background(), "slow-op", 1, func(ctx context.Context) error {
		select {
		case <-time.After(5 * time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	var timeoutErr *OperationTimeoutError
	assert.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "slow-op", timeoutErr.Op)
	assert.Equal(t, 1, timeoutErr.Seconds)
}

func TestWithTimeout_PropagatesOperationError(t *testing.T) {
	sentinel := errors.New("boom")
	err := WithTimeout(context.Background(), "fast-op", 5, func(ctx context.Context) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
}
