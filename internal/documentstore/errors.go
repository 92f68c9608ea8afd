package documentstore

import "errors"

// Errors returned by Store operations.
var (
	ErrDocumentNotOpen     = errors.New("documentstore: document not open")
	ErrDocumentAlreadyOpen = errors.New("documentstore: document already open")
)
