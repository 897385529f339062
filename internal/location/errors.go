package location

import "errors"

var (
	// ErrUnknownLocation is returned when a symbolic path or a name refers to
	// a location that is not registered.
	ErrUnknownLocation = errors.New("unknown location")

	// ErrMalformedPath is returned for symbolic paths without a location
	// segment or with an empty relative part.
	ErrMalformedPath = errors.New("malformed symbolic path")

	// ErrLocationExists is returned when adding a name that is already taken.
	ErrLocationExists = errors.New("location already exists")

	// ErrPathInvalid is returned when a location path is not an existing
	// directory.
	ErrPathInvalid = errors.New("location path is not a directory")

	// ErrLocationInUse is returned when removing a location the index still
	// references without force.
	ErrLocationInUse = errors.New("location is referenced by the index")

	// ErrLastLocation is returned when removing the only remaining location.
	ErrLastLocation = errors.New("cannot remove the last location")
)
