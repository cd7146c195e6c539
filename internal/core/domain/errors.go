package domain

import "errors"

var (
	ErrOrderTooSmall    = errors.New("order must contain at least 6 cookies")
	ErrNegativeQuantity = errors.New("cookie quantity cannot be negative")
	ErrInvalidQuantity  = errors.New("cookie quantity must be a finite number")
	ErrFlavorRequired   = errors.New("flavor is required")
	ErrOrderNotFound    = errors.New("order not found")
	ErrNoteTooLong      = errors.New("note cannot exceed 10 words")
)
