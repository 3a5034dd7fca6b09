package bridge

import "github.com/MeganTobias/chainvault/internal/domain"

// Transition is the pure state-transition function for the transfer state
// machine. Authorization is checked by the caller before this runs; the
// function itself is independent of who calls it.
//
//	Pending + success  -> Completed
//	Pending + !success -> Reverted
//	terminal + _       -> ErrTransferCompleted
func Transition(state domain.TransferState, success bool) (domain.TransferState, error) {
	if state.Terminal() {
		return state, domain.ErrTransferCompleted
	}
	if state != domain.TransferStatePending {
		return state, domain.ErrInvalidInput
	}
	if success {
		return domain.TransferStateCompleted, nil
	}
	return domain.TransferStateReverted, nil
}
