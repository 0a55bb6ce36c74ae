package lossbridge

import (
	"fmt"

	"github.com/pkg/errors"
)

//Status is the result code returned across the bridge boundary.
type Status int32

const (
	StatusSuccess            Status = 0
	StatusOutOfMemory        Status = -1
	StatusUnexpectedInternal Status = -2
	StatusMalformedSpec      Status = -3
	StatusUnknownLoss        Status = -4
	StatusInvalidParameter   Status = -5
	StatusZoneUnavailable    Status = -6
	StatusDeviceFault        Status = -7
	StatusNotYetAvailable    Status = -8
)

var (
	ErrOutOfMemory        = errors.New("out of memory")
	ErrUnexpectedInternal = errors.New("unexpected internal error")
	ErrMalformedSpec      = errors.New("malformed loss specification")
	ErrUnknownLoss        = errors.New("unknown loss")
	ErrInvalidParameter   = errors.New("invalid parameter")
	ErrZoneUnavailable    = errors.New("zone unavailable")
	ErrDeviceFault        = errors.New("device fault")
	ErrNotYetAvailable    = errors.New("not yet available")
)

var statusErrors = map[Status]error{
	StatusOutOfMemory:        ErrOutOfMemory,
	StatusUnexpectedInternal: ErrUnexpectedInternal,
	StatusMalformedSpec:      ErrMalformedSpec,
	StatusUnknownLoss:        ErrUnknownLoss,
	StatusInvalidParameter:   ErrInvalidParameter,
	StatusZoneUnavailable:    ErrZoneUnavailable,
	StatusDeviceFault:        ErrDeviceFault,
	StatusNotYetAvailable:    ErrNotYetAvailable,
}

//Err returns nil for StatusSuccess and the matching sentinel otherwise.
func (s Status) Err() error {
	if s == StatusSuccess {
		return nil
	}
	if err, ok := statusErrors[s]; ok {
		return err
	}
	return errors.Wrapf(ErrUnexpectedInternal, "status %d", int32(s))
}

func (s Status) String() string {
	if s == StatusSuccess {
		return "success"
	}
	if err, ok := statusErrors[s]; ok {
		return err.Error()
	}
	return fmt.Sprintf("status(%d)", int32(s))
}

//StatusOf converts an error built from the sentinels back into a status.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	cause := errors.Cause(err)
	for status, sentinel := range statusErrors {
		if cause == sentinel {
			return status
		}
	}
	return StatusUnexpectedInternal
}
