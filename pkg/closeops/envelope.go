package closeops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ledgerworks/closeflow/pkg/engine"
)

// StatusSuccess is the output status of a successful invocation.
const StatusSuccess = "success"

// Request is the invocation envelope read from stdin or the HTTP surface.
type Request struct {
	WorkspaceID string  `json:"workspace_id,omitempty"`
	STFID       string  `json:"stf_id,omitempty"`
	Caller      *string `json:"caller,omitempty"`
	APIURL      string  `json:"api_url,omitempty"`
	APIToken    string  `json:"api_token,omitempty"`

	// Input holds the operation name and its parameters.
	Input json.RawMessage `json:"input"`

	// Sources carries previous step outputs; they are passed through untouched.
	Sources json.RawMessage `json:"sources,omitempty"`
}

// Output is the success payload.
type Output struct {
	Status    string      `json:"status"`
	Operation string      `json:"operation"`
	Data      interface{} `json:"data"`
}

// Response is the invocation result. Exactly one of Output or Error is set.
type Response struct {
	Output *Output `json:"output,omitempty"`
	Error  string  `json:"error,omitempty"`
	Type   string  `json:"type,omitempty"`
}

// Failed reports whether the response carries an error.
func (r *Response) Failed() bool {
	return r.Output == nil
}

// ReadRequest decodes an invocation envelope.
func ReadRequest(r io.Reader) (*Request, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, engine.NewInternalError("failed to read input", err)
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, engine.NewValidationError("Invalid JSON input", err)
	}
	return &req, nil
}

// Success wraps an operation result.
func Success(op string, data interface{}) *Response {
	return &Response{Output: &Output{Status: StatusSuccess, Operation: op, Data: data}}
}

// Failure reports err with its classification.
func Failure(err error) *Response {
	msg := err.Error()
	var ce *engine.CloseError
	if errors.As(err, &ce) {
		msg = ce.Message
		if ce.Err != nil {
			msg = fmt.Sprintf("%s: %v", ce.Message, ce.Err)
		}
	}
	return &Response{Error: msg, Type: string(engine.ErrorType(err))}
}

// WriteResponse encodes resp as a single JSON document.
func WriteResponse(w io.Writer, resp *Response) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// Handle runs the operation named in the request input.
func (s *Service) Handle(ctx context.Context, req *Request) *Response {
	op, data, err := s.Dispatch(ctx, req.Input)
	if err != nil {
		return Failure(err)
	}
	return Success(op, data)
}
