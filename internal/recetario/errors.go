package recetario

import (
	"fmt"

	"github.com/graph-gophers/graphql-go"

	"github.com/recetario/recetario/internal/store"
)

// Error codes reported in the extensions of field errors.
const (
	CodeBadUserInput = "BAD_USER_INPUT"
	CodeInternal     = "INTERNAL"
)

// Error is returned by resolvers. graphql-go copies Extensions into the
// GraphQL error, so clients see the code next to the message.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Extensions reports the error code to clients.
func (e *Error) Extensions() map[string]interface{} {
	return map[string]interface{}{
		"code": e.Code,
	}
}

func internalError(err error) *Error {
	return &Error{Code: CodeInternal, Message: err.Error(), Err: err}
}

func parseID(arg string, raw graphql.ID) (store.ID, error) {
	id, err := store.ParseID(string(raw))
	if err != nil {
		return store.ID{}, &Error{
			Code:    CodeBadUserInput,
			Message: fmt.Sprintf("invalid %s %q: must be a 24 character hex id", arg, string(raw)),
			Err:     err,
		}
	}
	return id, nil
}
