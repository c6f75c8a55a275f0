package domain

import "errors"

var (
	// ErrStoreNotFound means the item store file does not exist.
	ErrStoreNotFound = errors.New("item store not found")

	// ErrMalformedData means the item store could not be parsed as a list
	// of items.
	ErrMalformedData = errors.New("malformed item data")

	ErrItemNotFound = errors.New("item not found")
)
