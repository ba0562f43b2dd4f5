package balance

import (
	"github.com/pkg/errors"

	"github.com/san-kum/grfbalance/internal/gait"
)

// bounds fills lb and ub for the friction rows. Swing legs get lb = ub = 0
// on every row, pinning their force to zero. Stance legs keep the pyramid
// faces one-sided and bound the normal force to [fzmin, fzmax].
func bounds(lb, ub []float64, lay layout, contacts gait.Map, fzmin, fzmax, inf float64) error {
	if len(lb) != NumConstraints || len(ub) != NumConstraints {
		return errors.Wrapf(ErrSize, "bounds have %d/%d rows, want %d", len(lb), len(ub), NumConstraints)
	}
	if err := contacts.Validate(lay.legs); err != nil {
		return err
	}

	stanceLower := [RowsPerLeg]float64{-inf, -inf, 0, 0, fzmin}
	stanceUpper := [RowsPerLeg]float64{0, 0, inf, inf, fzmax}
	for i, leg := range lay.legs {
		row := lay.frictionRow(i)
		stance := contacts[leg].State == gait.Stance
		for k := 0; k < RowsPerLeg; k++ {
			if stance {
				lb[row+k], ub[row+k] = stanceLower[k], stanceUpper[k]
			} else {
				lb[row+k], ub[row+k] = 0, 0
			}
		}
	}
	return nil
}
