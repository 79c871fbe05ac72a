package usersync

import "errors"

var (
	// ErrDirectoryUnavailable covers every LDAP transport failure: server
	// down, connection refused, invalid credentials. Fatal to the run.
	ErrDirectoryUnavailable = errors.New("directory unavailable")

	// ErrRemoteUnreachable is returned when the ElabFTW instance refuses the
	// connection or answers the info probe with a non-200. Fatal to the run.
	ErrRemoteUnreachable = errors.New("elabftw unreachable")

	ErrTeamNotFound = errors.New("team not found")
	ErrUserNotFound = errors.New("user not found")

	// ErrNoUserID means a user creation response carried no parseable id in
	// its Location header. Nothing downstream can work with an opaque
	// location string, so creation fails explicitly.
	ErrNoUserID = errors.New("no usable user id in create response")
)
