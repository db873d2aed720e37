package command

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const textCodeInternal = "OFFCHAIN_INTERNAL"

func commandDependencyError(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(textCodeInternal)
}
