package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"materialhub/internal/config"
	"materialhub/internal/models"
	"materialhub/internal/services"

	"github.com/spf13/cobra"
)

var (
	reportWindow    string
	reportStart     string
	reportEnd       string
	reportBoard     string
	reportSearch    string
	reportAccount   string
	reportRanking   bool
	reportMetric    string
	reportDirection string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print dashboard figures for a report window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		w, err := services.ParseWindow(reportWindow, reportStart, reportEnd)
		if err != nil {
			return err
		}
		dash := services.NewDashboardService(cfg.Reporting.RankingPoolSize, nil)
		out := cmd.OutOrStdout()

		if reportRanking {
			metric, err := services.ParseRankMetric(reportMetric)
			if err != nil {
				return err
			}
			dir, err := services.ParseRankDirection(reportDirection)
			if err != nil {
				return err
			}
			return writeRanking(out, dash.Ranking(w, metric, dir))
		}

		board, err := services.ParseBoard(reportBoard)
		if err != nil {
			return err
		}
		ov := dash.Overview(w)
		fmt.Fprintf(out, "window=%s multiplier=%.2f incoming=%d opening=%d leads=%d opening_rate=%s conversion=%s\n\n",
			w.Kind, w.Multiplier(), ov.Incoming, ov.Opening, ov.Leads, ov.OpeningRate, ov.ConversionRate)
		return writeBoard(out, dash.Records(board, w, services.BoardFilter{Search: reportSearch, Account: reportAccount}))
	},
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportWindow, "window", "last7", "today|yesterday|last7|last30|custom")
	f.StringVar(&reportStart, "start", "", "custom window start (YYYY-MM-DD)")
	f.StringVar(&reportEnd, "end", "", "custom window end (YYYY-MM-DD)")
	f.StringVar(&reportBoard, "board", "agent", "agent|ad|live")
	f.StringVar(&reportSearch, "search", "", "name filter")
	f.StringVar(&reportAccount, "account", "all", "account filter")
	f.BoolVar(&reportRanking, "ranking", false, "print the agent ranking instead of a board")
	f.StringVar(&reportMetric, "metric", "leads", "ranking metric: leads|conversionRate|openingRate")
	f.StringVar(&reportDirection, "direction", "top", "ranking direction: top|bottom")
	rootCmd.AddCommand(reportCmd)
}

func writeBoard(out io.Writer, records []models.PerformanceRecord) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tACCOUNT\tINCOMING\tOPENING\tLEADS\tOPENING%\tCONVERSION%")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			r.Name, r.AccountName, r.Incoming, r.Opening, r.Leads, r.OpeningRate, r.LeadConversionRate)
	}
	return tw.Flush()
}

func writeRanking(out io.Writer, ranked []services.RankedRecord) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tBADGE\tNAME\tLEADS\tOPENING%\tCONVERSION%")
	for _, r := range ranked {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
			r.Position, r.Badge, r.Name, r.Leads, r.OpeningRate, r.LeadConversionRate)
	}
	return tw.Flush()
}
