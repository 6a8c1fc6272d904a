package service

import (
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/rehabplan/internal/storage"
)

// storeError maps a storage error onto the matching Connect code.
func storeError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, storage.ErrConflict):
		return connect.NewError(connect.CodeAlreadyExists, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

func invalid(err error) error {
	return connect.NewError(connect.CodeInvalidArgument, err)
}
