package commands

import (
	"github.com/spf13/cobra"

	"github.com/ledgerworks/closeflow/pkg/closeops"
)

func newInvokeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Run one operation from a JSON envelope on stdin",
		Long: `Run one close operation described by a JSON envelope read from stdin and
write the JSON result to stdout. The exit status is 1 when the operation fails.

Envelope fields:
  input         the operation and its parameters (required)
  api_url       workspace SQL API root; with workspace_id, overrides the configured store
  api_token     bearer token for the SQL API
  workspace_id  workspace whose database holds the close tasks
  stf_id        caller identifier forwarded to the SQL API`,
		Example: `  echo '{"input": {"operation": "get_critical_path", "period": "2025-01"}}' | closeflow invoke

  closeflow invoke < request.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			req, err := closeops.ReadRequest(cmd.InOrStdin())
			if err != nil {
				return emitResponse(cmd, closeops.Failure(err), err)
			}

			rt, err := loadRuntime(ctx)
			if err != nil {
				return emitResponse(cmd, closeops.Failure(err), err)
			}
			defer rt.Close(ctx)
			rt.envelopeStore = true

			resp := rt.Handle(ctx, req)
			return emitResponse(cmd, resp, nil)
		},
	}

	return cmd
}

// emitResponse writes resp and turns a failed response into a reported error.
func emitResponse(cmd *cobra.Command, resp *closeops.Response, cause error) error {
	if err := closeops.WriteResponse(cmd.OutOrStdout(), resp); err != nil {
		return err
	}
	if !resp.Failed() {
		return nil
	}
	if cause == nil {
		cause = &invocationError{resp: resp}
	}
	return &reportedError{err: cause}
}

// invocationError carries a failed envelope response as an error.
type invocationError struct {
	resp *closeops.Response
}

func (e *invocationError) Error() string {
	return e.resp.Type + ": " + e.resp.Error
}
