package transport

import "errors"

var (
	errHandleClosed = errors.New("handle closed")
	errJobOpen      = errors.New("job already started")
	errNoJob        = errors.New("no job started")
)
