package status

import "errors"

var (
	ErrValidation         = errors.New("register: missing or invalid input")
	ErrCapacityExceeded   = errors.New("register: wave is sold out")
	ErrInvalidToken       = errors.New("scan: token matches no ticket")
	ErrPaymentNotApproved = errors.New("scan: payment not approved")
	ErrNotCheckedIn       = errors.New("scan: exit before entry")
	ErrDuplicateScan      = errors.New("scan: state transition already consumed")
	ErrBrokenLink         = errors.New("store: ticket is missing a linked row")
	ErrNotFound           = errors.New("store: no such record")
	ErrBadCredentials     = errors.New("auth: unknown user or wrong password")
	ErrSessionExpired     = errors.New("auth: session expired or revoked")
)
