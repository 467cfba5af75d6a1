package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/invoice-assistant/internal/model"
	"github.com/rezonia/invoice-assistant/internal/render"
)

var (
	renderOutput string
	renderIssuer string
)

var renderCmd = &cobra.Command{
	Use:   "render [draft.json]",
	Short: "Render an invoice draft as PDF",
	Long: `Render an invoice draft (the "data" object of an invoice chat response)
as a PDF. Reads from stdin when no file or "-" is given. The total is
recomputed from the line items.

Examples:
  invoice-assistant render draft.json -o invoice.pdf
  curl ... | jq .data | invoice-assistant render - --issuer "Acme Ltd"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "invoice.pdf", "Output PDF file")
	renderCmd.Flags().StringVar(&renderIssuer, "issuer", "", "Company name printed on the PDF")
}

func runRender(cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open draft: %w", err)
		}
		defer f.Close()
		in = f
	}

	draft, err := readDraft(in)
	if err != nil {
		return err
	}
	printVerbose("Rendering %d items for %s\n", len(draft.Items), draft.ClientName)

	if err := writePDF(renderOutput, render.FromDraft(*draft, renderIssuer, time.Now())); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved PDF to %s (total %.2f)\n", renderOutput, draft.Total)
	return nil
}

// readDraft decodes one draft and recomputes its total
func readDraft(r io.Reader) (*model.Draft, error) {
	var draft model.Draft
	if err := json.NewDecoder(r).Decode(&draft); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	draft.Recalculate()
	return &draft, nil
}
