package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	service "github.com/okian/cognitrend/internal/app"
	"github.com/okian/cognitrend/internal/domain/model"
	"github.com/okian/cognitrend/pkg/logger"
)

func init() {
	cmd := &cobra.Command{
		Use:   "assess [elder-id...]",
		Short: "Assess elders for a date",
		Long:  "Runs the pipeline for each elder id and prints the results as JSON. With --all every known elder is queued on the worker pool instead.",
		Run:   runAssess,
	}
	cmd.Flags().Bool("all", false, "Assess every elder with stored activity")
	cmd.Flags().String("date", "", "Assessment date as YYYY-MM-DD (default: today)")

	RootCmd.AddCommand(cmd)
}

type assessOutput struct {
	ElderID    string              `json:"elder_id"`
	Assessment *service.Assessment `json:"assessment,omitempty"`
	Skipped    string              `json:"skipped,omitempty"`
}

func runAssess(cmd *cobra.Command, args []string) {
	all, _ := cmd.Flags().GetBool("all")
	if all == (len(args) > 0) {
		exitErr("assess", errors.New("pass elder ids or --all, not both"))
	}
	rawDate, _ := cmd.Flags().GetString("date")
	date, err := parseDateFlag(rawDate, time.Now())
	if err != nil {
		exitErr("assess", err)
	}

	ctx := cmd.Context()
	deps, err := bootstrap(ctx, true)
	if err != nil {
		exitErr("startup", err)
	}
	defer deps.close()

	var out any
	if all {
		out, err = assessAll(ctx, deps.svc, date)
	} else {
		out, err = assessEach(ctx, deps.svc, args, date)
	}
	if err != nil {
		deps.close()
		exitErr("assess", err)
	}
	if err := printJSON(cmd.OutOrStdout(), out); err != nil {
		deps.log.Error(ctx, "write output", logger.Error(err))
	}
}

// assessEach runs the pipeline inline. Elders without enough data are
// reported as skipped.
func assessEach(ctx context.Context, svc *service.Service, ids []string, date time.Time) ([]assessOutput, error) {
	out := make([]assessOutput, 0, len(ids))
	for _, id := range ids {
		res, err := svc.AssessOn(ctx, id, date)
		switch {
		case errors.Is(err, service.ErrInsufficientData):
			out = append(out, assessOutput{ElderID: id, Skipped: "insufficient data"})
		case err != nil:
			return out, fmt.Errorf("elder %q: %w", id, err)
		default:
			out = append(out, assessOutput{ElderID: id, Assessment: res})
		}
	}
	return out, nil
}

// assessAll queues every known elder and waits for the pool to drain.
func assessAll(ctx context.Context, svc *service.Service, date time.Time) (service.BatchResult, error) {
	if err := svc.Start(ctx); err != nil {
		return service.BatchResult{}, err
	}
	res, err := svc.AssessAll(ctx, date)
	svc.Stop()
	return res, err
}

func parseDateFlag(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return model.DateOf(now), nil
	}
	d, err := time.Parse(model.DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: must be YYYY-MM-DD", raw)
	}
	return d, nil
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
