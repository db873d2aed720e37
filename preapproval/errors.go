package preapproval

import (
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"

	"github.com/vaspnet/go-offchain/core"
)

// Text codes for lifecycle failures raised by local actions.
const (
	TextCodeNotFound         = "PREAPPROVAL_NOT_FOUND"
	TextCodeAlreadyExists    = "PREAPPROVAL_ALREADY_EXISTS"
	TextCodeInvalidStatus    = "PREAPPROVAL_INVALID_STATUS"
	TextCodeExpirationInPast = "PREAPPROVAL_EXPIRATION_IN_PAST"
)

func notFoundError(id string) error {
	return goerrors.Wrap(core.ErrPreApprovalNotFound, goerrors.CategoryNotFound,
		fmt.Sprintf("funds pull pre-approval %q not found", id)).
		WithCode(http.StatusNotFound).
		WithTextCode(TextCodeNotFound)
}

func alreadyExistsError(id string) error {
	return goerrors.Wrap(core.ErrPreApprovalExists, goerrors.CategoryConflict,
		fmt.Sprintf("funds pull pre-approval %q already exists", id)).
		WithCode(http.StatusConflict).
		WithTextCode(TextCodeAlreadyExists)
}

// invalidStatusError reproduces the exact guard message for a disallowed
// local action, e.g. "Could not approve command with status valid".
func invalidStatusError(action string, status core.FundPullPreApprovalStatus) error {
	return goerrors.Wrap(core.ErrInvalidPreApprovalStatus, goerrors.CategoryValidation,
		fmt.Sprintf("Could not %s command with status %s", action, status)).
		WithCode(http.StatusConflict).
		WithTextCode(TextCodeInvalidStatus)
}

func expirationError() error {
	return goerrors.New("expiration timestamp must be in the future", goerrors.CategoryValidation).
		WithCode(http.StatusBadRequest).
		WithTextCode(TextCodeExpirationInPast)
}
