package domain

import "github.com/oklog/ulid/v2"

// NewID returns a lexically sortable unique identifier.
var NewID = func() string {
	return ulid.Make().String()
}
