package gallery

import (
	"errors"
	"fmt"
)

// FetchError reports a listing page that answered with a non-2xx status.
type FetchError struct {
	Status int
	URL    string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("listing fetch returned status %d (url: %s)", e.Status, e.URL)
}

// NoResultsError reports a listing page that loaded but held no post containers.
type NoResultsError struct {
	Tags string
	Page int
}

func (e *NoResultsError) Error() string {
	return fmt.Sprintf("no results for tags %q page %d", e.Tags, e.Page)
}

// Is lets errors.Is(err, ErrNoResults) match any NoResultsError.
func (e *NoResultsError) Is(target error) bool {
	_, ok := target.(*NoResultsError)
	return ok
}

// ErrNoResults matches every NoResultsError via errors.Is.
var ErrNoResults = &NoResultsError{}

// StatusOf extracts the upstream status from a FetchError in err's chain.
func StatusOf(err error) (int, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Status, true
	}
	return 0, false
}
