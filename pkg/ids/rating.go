package ids

import "fmt"

// Rating is a bounded tradeoff/consequence score in [-2, 2]. Unlike
// Percentage, out-of-range construction is rejected rather than clamped,
// per spec.md §8's boundary test for Rating.
type Rating int8

const (
	RatingMin Rating = -2
	RatingMax Rating = 2
)

// NewRating validates raw and returns a Rating, or an error if raw falls
// outside [-2, 2].
func NewRating(raw int8) (Rating, error) {
	r := Rating(raw)
	if r < RatingMin || r > RatingMax {
		return 0, fmt.Errorf("ids: rating %d out of range [%d, %d]", raw, RatingMin, RatingMax)
	}
	return r, nil
}

// Int returns the underlying integer value.
func (r Rating) Int() int { return int(r) }
