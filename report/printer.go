// Package report renders scan verdicts for humans and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/yairfalse/valpas/types"
)

// Formats supported by the printer.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// Printer writes verdicts in the configured format.
type Printer struct {
	Format string
}

// Print renders the verdicts to w.
func (p Printer) Print(w io.Writer, verdicts []types.Verdict) error {
	switch p.Format {
	case FormatJSON:
		return printJSON(w, verdicts)
	case FormatTable, "":
		return printTable(w, verdicts)
	default:
		return fmt.Errorf("unknown output format: %s", p.Format)
	}
}

func printJSON(w io.Writer, verdicts []types.Verdict) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if verdicts == nil {
		verdicts = []types.Verdict{}
	}
	return enc.Encode(verdicts)
}

func printTable(w io.Writer, verdicts []types.Verdict) error {
	if len(verdicts) == 0 {
		_, err := fmt.Fprintln(w, "No pending attachments.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ATTACHMENT\tVPC\tACCOUNT\tCHECK\tSTATUS\tCOMMENT")
	for _, v := range verdicts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			v.AttachmentID, v.VpcID, v.AccountID, "overall", v.Overall, "")
		for _, e := range v.Report.Entries() {
			fmt.Fprintf(tw, "\t\t\t%s\t%s\t%s\n",
				e.Name, e.Result.Status, e.Result.Comment)
			if len(e.Result.Resources) > 0 {
				fmt.Fprintf(tw, "\t\t\t\t\t  %s\n", strings.Join(e.Result.Resources, ", "))
			}
		}
	}
	return tw.Flush()
}
