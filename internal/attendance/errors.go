package attendance

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrCardTaken        = errors.New("card id already registered")
	ErrDuplicateScan    = errors.New("scan of this kind already recorded for the day")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// StoreError marks a failure of the durable store. It matches ErrStoreUnavailable
// and keeps the driver error for logging.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "store unavailable: " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }

// InputError carries a validation failure and matches ErrInvalidInput.
type InputError struct {
	Err error
}

func (e *InputError) Error() string { return "invalid input: " + e.Err.Error() }

func (e *InputError) Unwrap() error { return e.Err }

func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

func storeFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
