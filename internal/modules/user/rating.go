// README: Running-average rating aggregation (pure).
package user

import (
	"errors"

	"metrosync/internal/types"
)

var ErrRatingOutOfRange = errors.New("rating must be between 1 and 5")

// ApplyRating folds one new rating into a running average. The returned
// average is rounded half-up to two decimals, matching the stored precision.
func ApplyRating(currentAverage float64, currentCount int, newRating int) (float64, int, error) {
	if newRating < 1 || newRating > 5 {
		return 0, 0, ErrRatingOutOfRange
	}
	if currentCount < 0 {
		currentCount = 0
	}
	total := currentAverage*float64(currentCount) + float64(newRating)
	newCount := currentCount + 1
	return types.Round2(total / float64(newCount)), newCount, nil
}
