package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/bobmcallan/eodlake/internal/app"
	"github.com/bobmcallan/eodlake/internal/clients/eodhd"
	"github.com/bobmcallan/eodlake/internal/common"
	"github.com/bobmcallan/eodlake/internal/models"
	"github.com/bobmcallan/eodlake/internal/table"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand(os.Stdout, os.Stderr).Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "eodlake: %v\n", err)
		os.Exit(1)
	}
}

// newCommand builds the CLI. Data goes to stdout, the banner to stderr.
func newCommand(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "eodlake",
		Usage:   "Fetch EODHD market data into a raw-data bucket",
		Version: common.GetFullVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the TOML config `FILE`",
				Sources: cli.EnvVars("EODLAKE_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "no-banner",
				Usage: "Do not print the startup banner",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "eod",
				Usage: "Download end-of-day data for one ticker and write it to the bucket",
				Flags: append(tickerFlags(),
					&cli.StringFlag{
						Name:  "endpoint",
						Usage: "Provider endpoint",
						Value: eodhd.EndpointEOD,
					},
					&cli.StringFlag{
						Name:  "from",
						Usage: "Start date in `YYYY-MM-DD` format (default: five years before --to)",
					},
					&cli.StringFlag{
						Name:  "to",
						Usage: "End date in `YYYY-MM-DD` format (default: today)",
					},
					&cli.StringFlag{
						Name:  "file",
						Usage: "Dataset name under raw-data/ (default: SYMBOL.EXCHANGE)",
					},
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Write mode: append, overwrite or overwrite_partitions",
						Value: "append",
					},
				),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withApp(cmd, stderr, func(a *app.App) error {
						req := fetchRequest(cmd)
						req.Endpoint = cmd.String("endpoint")
						req.Start = cmd.String("from")
						req.End = cmd.String("to")
						t, err := a.SyncEOD(ctx, req, cmd.String("file"), cmd.String("mode"))
						if err != nil {
							return err
						}
						fmt.Fprintf(stderr, "%s: %d rows\n", req.Ticker(), t.Len())
						return nil
					})
				},
			},
			{
				Name:      "batch",
				Usage:     "Download end-of-day data for several SYMBOL.EXCHANGE tickers",
				ArgsUsage: "TICKER [TICKER...]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Usage: "Start date in `YYYY-MM-DD` format"},
					&cli.StringFlag{Name: "to", Usage: "End date in `YYYY-MM-DD` format"},
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Write mode: append, overwrite or overwrite_partitions",
						Value: "append",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					reqs, err := parseTickers(cmd.Args().Slice())
					if err != nil {
						return err
					}
					for i := range reqs {
						reqs[i].Start = cmd.String("from")
						reqs[i].End = cmd.String("to")
					}
					return withApp(cmd, stderr, func(a *app.App) error {
						results, err := a.SyncEODBatch(ctx, reqs, cmd.String("mode"))
						if err != nil {
							return err
						}
						failed := 0
						for _, r := range results {
							if r.Err != nil {
								failed++
								fmt.Fprintf(stderr, "%s: %v\n", r.Ticker, r.Err)
								continue
							}
							fmt.Fprintf(stderr, "%s: %d rows\n", r.Ticker, r.Rows)
						}
						if failed > 0 {
							return fmt.Errorf("%d of %d tickers failed", failed, len(results))
						}
						return nil
					})
				},
			},
			{
				Name:  "fundamentals",
				Usage: "Download the fundamentals payload for one ticker",
				Flags: append(tickerFlags(),
					&cli.StringFlag{
						Name:  "file",
						Usage: "Dataset name under raw-data/",
						Value: app.FundamentalsFolder,
					},
					&cli.BoolFlag{
						Name:  "print",
						Usage: "Also write the payload to stdout",
					},
				),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withApp(cmd, stderr, func(a *app.App) error {
						body, err := a.SyncFundamentals(ctx, fetchRequest(cmd), cmd.String("file"))
						if err != nil {
							return err
						}
						if cmd.Bool("print") {
							_, err = stdout.Write(body)
						}
						return err
					})
				},
			},
			{
				Name:  "read",
				Usage: "Combine every CSV part of a dataset and write it to stdout",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "folder",
						Aliases:  []string{"f"},
						Usage:    "Dataset name under raw-data/",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "summary",
						Usage: "Print the row count, date range and latest close instead of the rows",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withApp(cmd, stderr, func(a *app.App) error {
						t, err := a.Read(ctx, cmd.String("folder"))
						if err != nil {
							return err
						}
						if cmd.Bool("summary") {
							return printSummary(stdout, t)
						}
						if t.Empty() && t.Index == "" {
							return nil
						}
						return t.WriteCSV(stdout)
					})
				},
			},
		},
	}
}

func printSummary(w io.Writer, t *table.Table) error {
	s, err := t.SummarizeEOD()
	if err != nil {
		return err
	}
	if s.Rows == 0 {
		_, err = fmt.Fprintln(w, "rows: 0")
		return err
	}
	_, err = fmt.Fprintf(w, "rows: %d\nfirst: %s\nlast: %s\nlast_close: %v\nlast_adjusted_close: %v\nvolume: %d\n",
		s.Rows, s.First.Format(models.DateLayout), s.Last.Format(models.DateLayout),
		s.LastClose, s.LastAdjustedClose, s.TotalVolume)
	return err
}

func tickerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "symbol",
			Aliases:  []string{"s"},
			Usage:    "Ticker symbol, e.g. AAPL",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "exchange",
			Aliases: []string{"e"},
			Usage:   "Exchange code, e.g. US",
			Value:   "US",
		},
	}
}

func fetchRequest(cmd *cli.Command) models.FetchRequest {
	return models.FetchRequest{
		Symbol:   cmd.String("symbol"),
		Exchange: cmd.String("exchange"),
	}
}

// parseTickers splits SYMBOL.EXCHANGE arguments. The exchange is the part
// after the last dot, so share classes like BRK.B.US keep their symbol.
func parseTickers(args []string) ([]models.FetchRequest, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("at least one SYMBOL.EXCHANGE ticker is required")
	}
	reqs := make([]models.FetchRequest, 0, len(args))
	for _, arg := range args {
		i := strings.LastIndex(arg, ".")
		if i <= 0 || i == len(arg)-1 {
			return nil, fmt.Errorf("ticker %q must be SYMBOL.EXCHANGE", arg)
		}
		reqs = append(reqs, models.FetchRequest{Symbol: arg[:i], Exchange: arg[i+1:]})
	}
	return reqs, nil
}

// withApp initializes the App for one command run and closes it afterwards.
func withApp(cmd *cli.Command, stderr io.Writer, fn func(a *app.App) error) error {
	a, err := app.NewApp(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	defer a.Close()

	if !cmd.Bool("no-banner") {
		common.PrintBanner(stderr, a.Config, a.Logger)
	}
	return fn(a)
}
