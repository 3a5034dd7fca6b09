package bridge

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeganTobias/chainvault/internal/domain"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		state   domain.TransferState
		success bool
		want    domain.TransferState
		wantErr error
	}{
		{"pending success", domain.TransferStatePending, true, domain.TransferStateCompleted, nil},
		{"pending failure", domain.TransferStatePending, false, domain.TransferStateReverted, nil},
		{"completed is terminal", domain.TransferStateCompleted, true, domain.TransferStateCompleted, domain.ErrTransferCompleted},
		{"completed rejects failure too", domain.TransferStateCompleted, false, domain.TransferStateCompleted, domain.ErrTransferCompleted},
		{"reverted is terminal", domain.TransferStateReverted, true, domain.TransferStateReverted, domain.ErrTransferCompleted},
		{"unknown state", domain.TransferState("limbo"), true, domain.TransferState("limbo"), domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.state, tt.success)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tt.want, got)
		})
	}
}
