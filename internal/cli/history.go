package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/okian/cognitrend/pkg/logger"
)

func init() {
	cmd := &cobra.Command{
		Use:   "history <elder-id>",
		Short: "Print stored scores for an elder, newest first",
		Args:  cobra.ExactArgs(1),
		Run:   runHistory,
	}
	cmd.Flags().IntP("limit", "l", 30, "Maximum number of records")

	RootCmd.AddCommand(cmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		exitErr("history", errors.New("limit must be positive"))
	}

	ctx := cmd.Context()
	deps, err := bootstrap(ctx, true)
	if err != nil {
		exitErr("startup", err)
	}
	defer deps.close()

	recs, err := deps.svc.History(ctx, args[0], limit)
	if err != nil {
		deps.close()
		exitErr("history", err)
	}
	if err := printJSON(cmd.OutOrStdout(), recs); err != nil {
		deps.log.Error(ctx, "write output", logger.Error(err))
	}
}
