package temporal

import "errors"

var (
	// ErrNoTransaction reports a transactional operation on a handle
	// whose transaction has already finished.
	ErrNoTransaction = errors.New("temporal: no transaction active")

	// ErrClosed reports use of a closed dataset.
	ErrClosed = errors.New("temporal: dataset closed")
)

// UnsupportedTxnTypeError reports a Begin with a transaction type the
// dataset cannot honor, such as the promotable read types.
type UnsupportedTxnTypeError struct {
	Type TxnType
}

func (e *UnsupportedTxnTypeError) Error() string {
	return "temporal: unsupported transaction type " + e.Type.String()
}
