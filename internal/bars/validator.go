package bars

import (
	"fmt"

	"sessioncore/internal/types"
)

// Validator checks that completed bars satisfy the OHLC invariants before
// they are allowed to reach the strategy state machine.
type Validator struct{}

func NewValidator() *Validator { return &Validator{} }

// Validate returns a *types.SessionError with code VALIDATION when bar
// fails its OHLC invariants, or when it is not marked completed.
func (v *Validator) Validate(bar types.Candle) error {
	if !bar.Completed {
		return types.NewSessionError(types.ErrValidation, "bars.Validate", fmt.Errorf("bar at %d is not completed", bar.Timestamp))
	}
	if err := bar.Validate(); err != nil {
		return types.NewSessionError(types.ErrValidation, "bars.Validate", err)
	}
	return nil
}
