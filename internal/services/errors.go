// Package services defines the application services that sit between the
// HTTP layer and the detection engine: submission checking, the detection
// log, block administration and the challenge/intent token protocol.
//
// This file centralizes service-level error values so handlers can map them
// to HTTP status codes consistently.
package services

import "errors"

var (
	// ErrInvalidSource is returned when a submission names an unknown
	// source type.
	ErrInvalidSource = errors.New("unknown source type")

	// ErrInvalidIP is returned when an address parameter is not an IP.
	ErrInvalidIP = errors.New("invalid ip address")

	// ErrInvalidBlock is returned when a block request has an unknown kind
	// or an inverted window.
	ErrInvalidBlock = errors.New("invalid block request")

	// ErrBlockNotFound indicates that no block entry exists for the address.
	ErrBlockNotFound = errors.New("block not found")

	// ErrTokenUnavailable is returned when the token store cannot produce a
	// honeypot name, challenge token or intent token.
	ErrTokenUnavailable = errors.New("token store unavailable")

	// ErrHoneypotPinned is returned when regeneration is asked for a
	// honeypot name fixed by configuration.
	ErrHoneypotPinned = errors.New("honeypot field is pinned by configuration")
)
