package odoo

import (
	"errors"
	"fmt"
	"strings"
)

// ErrLoginFailed is returned when the registry rejects the configured credentials.
var ErrLoginFailed = errors.New("odoo: login failed")

// RPCError is a JSON-RPC fault returned by the registry.
type RPCError struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Data    RPCErrorData `json:"data"`
}

type RPCErrorData struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	msg := e.Data.Message
	if msg == "" {
		msg = e.Message
	}
	if e.Data.Name != "" {
		return fmt.Sprintf("odoo rpc error %d (%s): %s", e.Code, e.Data.Name, msg)
	}
	return fmt.Sprintf("odoo rpc error %d: %s", e.Code, msg)
}

// IsAuth reports whether the fault means the session is no longer valid.
func (e *RPCError) IsAuth() bool {
	name := e.Data.Name
	return strings.Contains(name, "AccessDenied") || strings.Contains(name, "SessionExpired")
}

// httpStatusError is a non-2xx response from the registry endpoint.
type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("Code %d: %s", e.Code, e.Body)
}

func isAuthError(err error) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr) && rpcErr.IsAuth()
}
