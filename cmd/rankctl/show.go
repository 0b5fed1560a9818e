package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"hsdash/internal/domain/ranking"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatPDF   = "pdf"
)

var (
	showFormat string
	showOut    string
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	upStyle     = cellStyle.Foreground(lipgloss.Color("2"))
	downStyle   = cellStyle.Foreground(lipgloss.Color("1"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a period's ranking",
	RunE: func(cmd *cobra.Command, _ []string) error {
		tenantID, period, err := parseTarget()
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		deps, err := openRanking(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer deps.Close()

		out := cmd.OutOrStdout()
		color := isatty.IsTerminal(os.Stdout.Fd())
		if showOut != "" {
			f, err := os.Create(showOut)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
			color = false
		}

		snap, err := deps.rankings.Ranking(cmd.Context(), tenantID, period, false)
		if err != nil {
			return err
		}
		switch showFormat {
		case formatJSON:
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		case formatPDF:
			return ranking.RenderPDF(snap, out)
		case formatTable:
			return writeTable(out, snap, color)
		default:
			return fmt.Errorf("unknown --format %q", showFormat)
		}
	},
}

// writeTable prints the ranking with a bordered table. Rank variation is
// coloured only when color is set.
func writeTable(w io.Writer, snap ranking.Snapshot, color bool) error {
	rows := make([][]string, 0, len(snap.Results))
	for _, r := range snap.Results {
		rows = append(rows, []string{
			strconv.Itoa(r.RankPosition),
			r.EmployeeName,
			r.Department,
			strconv.FormatFloat(r.TotalScore, 'f', 2, 64),
			optional(r.PreviousRank),
			variation(r.RankVariation),
			strings.Join(r.Weaknesses, ", "),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "Employee", "Department", "Score", "Prev", "Var", "Weaknesses").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if color && col == 5 && row >= 0 && row < len(snap.Results) {
				if v := snap.Results[row].RankVariation; v != nil {
					switch {
					case *v > 0:
						return upStyle
					case *v < 0:
						return downStyle
					}
				}
			}
			return cellStyle
		})

	if _, err := fmt.Fprintf(w, "Ranking %s (%d employees)\n", snap.Period, len(snap.Results)); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, t.String()); err != nil {
		return err
	}
	for _, warning := range snap.Warnings {
		if _, err := fmt.Fprintln(w, warnStyle.Render("warning: "+warning.Message)); err != nil {
			return err
		}
	}
	return nil
}

func optional(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func variation(v *int) string {
	if v == nil {
		return "-"
	}
	if *v > 0 {
		return "+" + strconv.Itoa(*v)
	}
	return strconv.Itoa(*v)
}

func init() {
	showCmd.Flags().StringVar(&flagTenant, "tenant", "", "Tenant ID (required)")
	showCmd.Flags().StringVar(&flagPeriod, "period", "", "Period: YYYY-MM, YYYY-MM-DD or consolidated (required)")
	showCmd.Flags().StringVarP(&showFormat, "format", "f", formatTable, "Output format: table, json or pdf")
	showCmd.Flags().StringVarP(&showOut, "out", "o", "", "Write output to this file instead of stdout")
	for _, name := range []string{"tenant", "period"} {
		if err := showCmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}
	rootCmd.AddCommand(showCmd)
}
