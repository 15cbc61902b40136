package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/overlordausritter/thematicbeast/internal/domain/query/mode"
	"github.com/overlordausritter/thematicbeast/internal/domain/query/payload"
	"github.com/overlordausritter/thematicbeast/internal/domain/query/record"
	queryuc "github.com/overlordausritter/thematicbeast/internal/usecase/query"
)

// previewLen is in runes.
const previewLen = 500

var (
	queryText    string
	queryCompany string
	queryMode    string
	queryJSON    bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run one query against the index and print the chunks",
	Long: `Run one query through the same retry, normalization and company filter
as POST /llamaquery.

Examples:
  thematicbeast query -q "supply chain risk" --company "Blue Ocean"
  thematicbeast query -q "AI capex" --mode unfiltered --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "query text (required)")
	queryCmd.Flags().StringVarP(&queryCompany, "company", "c", "", "company name to filter by")
	queryCmd.Flags().StringVarP(&queryMode, "mode", "m", "", "filtered or unfiltered (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	_ = queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	m := cfg.QueryMode()
	if queryMode != "" {
		m = mode.Mode(queryMode)
	}

	a, err := buildApp(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.query.Query(ctx, &payload.Payload{Query: queryText, Company: queryCompany}, m)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if queryJSON {
		return printJSON(out, res)
	}
	printResult(out, res)
	return nil
}

func printJSON(w io.Writer, res queryuc.Result) error {
	var v any
	if res.Mode == mode.Unfiltered {
		v = map[string]any{"results": res.Records, "count": len(res.Records)}
	} else {
		body := map[string]any{"company": res.Company, "results": res.Records}
		if res.Message != "" {
			body["message"] = res.Message
		}
		v = body
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}

func printResult(w io.Writer, res queryuc.Result) {
	boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	if res.Message != "" {
		fmt.Fprintln(w, yellow(res.Message))
		return
	}
	if len(res.Records) == 0 {
		fmt.Fprintln(w, yellow("No results found."))
		return
	}

	if res.Company != "" {
		fmt.Fprintf(w, "%s %d of %d chunks mention %s\n\n",
			boldGreen("Found"), len(res.Records), res.Retrieved, boldCyan(res.Company))
	} else {
		fmt.Fprintf(w, "%s %d chunks\n\n", boldGreen("Found"), len(res.Records))
	}

	for i, r := range res.Records {
		fmt.Fprintf(w, "%s %s\n", boldCyan(fmt.Sprintf("[%d]", i+1)), sourceLabel(r))
		if r.WebURL != nil {
			fmt.Fprintln(w, faint(*r.WebURL))
		}
		fmt.Fprintln(w, preview(r.Text))
		fmt.Fprintln(w)
	}
}

func sourceLabel(r record.Record) string {
	if name := r.FileNameOrEmpty(); name != "" {
		return name
	}
	return "(unknown source)"
}

func preview(text string) string {
	text = strings.TrimSpace(text)
	n := 0
	for i := range text {
		if n == previewLen {
			return text[:i] + "..."
		}
		n++
	}
	return text
}
