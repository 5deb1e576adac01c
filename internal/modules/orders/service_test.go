package orders

import (
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStatus(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		action  string
		want    string
		wantErr bool
	}{
		{"accept placed", StatusPlaced, "accept", StatusAccepted, false},
		{"process accepted", StatusAccepted, "process", StatusProcessing, false},
		{"ship processing", StatusProcessing, "ship", StatusShipped, false},
		{"deliver shipped", StatusShipped, "deliver", StatusDelivered, false},

		{"cancel placed", StatusPlaced, "cancel", StatusCancelled, false},
		{"cancel accepted", StatusAccepted, "cancel", StatusCancelled, false},
		{"cancel processing", StatusProcessing, "cancel", StatusCancelled, false},
		{"cancel shipped", StatusShipped, "cancel", StatusCancelled, false},

		{"cancel delivered rejected", StatusDelivered, "cancel", "", true},
		{"cancel cancelled rejected", StatusCancelled, "cancel", "", true},
		{"accept shipped rejected", StatusShipped, "accept", "", true},
		{"ship placed rejected", StatusPlaced, "ship", "", true},
		{"deliver processing rejected", StatusProcessing, "deliver", "", true},
		{"unknown action rejected", StatusPlaced, "refund", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := nextStatus(tt.from, tt.action)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidTransition)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsDuplicate(t *testing.T) {
	assert.True(t, IsDuplicate(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.False(t, IsDuplicate(&mysql.MySQLError{Number: 1213, Message: "Deadlock"}))
	assert.False(t, IsDuplicate(assert.AnError))
	assert.False(t, IsDuplicate(nil))
}
