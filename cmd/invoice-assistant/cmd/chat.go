package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/invoice-assistant/internal/llm"
	"github.com/rezonia/invoice-assistant/internal/model"
	"github.com/rezonia/invoice-assistant/internal/render"
)

var (
	chatPDFPath     string
	chatIssuer      string
	chatTurnTimeout time.Duration
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Create an invoice interactively in the terminal",
	Long: `Start a terminal conversation with the invoice assistant.

The assistant asks for whatever is missing (client name, email, due date,
line items) and prints the invoice as JSON once it has everything. Type
"exit" or "quit" to leave.

Examples:
  invoice-assistant chat
  invoice-assistant chat "Invoice TechCorp for 10 hours at $50/hr" --pdf invoice.pdf`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVar(&chatPDFPath, "pdf", "", "Write the finished invoice to this PDF file")
	chatCmd.Flags().StringVar(&chatIssuer, "issuer", "", "Company name printed on the PDF")
	chatCmd.Flags().DurationVar(&chatTurnTimeout, "timeout", time.Minute, "Deadline for each model call")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	completer, err := newCompleter(ctx)
	if err != nil {
		return err
	}
	printVerbose("Using provider %s\n", providerName())

	session := &chatSession{
		extractor: llm.NewExtractor(completer),
		out:       cmd.OutOrStdout(),
		pdfPath:   chatPDFPath,
		issuer:    chatIssuer,
		timeout:   chatTurnTimeout,
		now:       time.Now,
	}

	in := cmd.InOrStdin()
	if len(args) == 1 {
		in = io.MultiReader(strings.NewReader(args[0]+"\n"), in)
	}
	_, err = session.run(ctx, in)
	return err
}

// chatSession keeps the transcript of one terminal conversation
type chatSession struct {
	extractor *llm.Extractor
	out       io.Writer
	pdfPath   string
	issuer    string
	timeout   time.Duration
	now       func() time.Time
	history   []model.Turn
}

// run reads messages until the assistant produces an invoice, the user
// quits or input ends. It returns the finished draft, if any.
func (s *chatSession) run(ctx context.Context, in io.Reader) (*model.Draft, error) {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(s.out, "Describe the invoice you need. Type \"exit\" to quit.")

	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return nil, scanner.Err()
		}

		message := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(message) {
		case "":
			continue
		case "exit", "quit":
			return nil, nil
		}

		outcome, err := s.turn(ctx, message)
		if err != nil {
			fmt.Fprintf(s.out, "Error (%s): %v\n", model.ErrorKind(err), err)
			continue
		}

		if outcome.IsClarification() {
			fmt.Fprintf(s.out, "Assistant: %s\n", outcome.Message)
			s.history = append(s.history,
				model.Turn{Role: model.RoleUser, Content: message},
				model.Turn{Role: model.RoleAssistant, Content: outcome.Message},
			)
			continue
		}

		if err := s.finish(outcome.Invoice); err != nil {
			return nil, err
		}
		return outcome.Invoice, nil
	}
}

func (s *chatSession) turn(ctx context.Context, message string) (*model.Outcome, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.extractor.Extract(ctx, s.history, message)
}

func (s *chatSession) finish(draft *model.Draft) error {
	data, err := json.MarshalIndent(draft, "", "  ")
	if err != nil {
		return fmt.Errorf("encode invoice: %w", err)
	}
	fmt.Fprintf(s.out, "Invoice:\n%s\n", data)

	if s.pdfPath == "" {
		return nil
	}
	if err := writePDF(s.pdfPath, render.FromDraft(*draft, s.issuer, s.now())); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Saved PDF to %s\n", s.pdfPath)
	return nil
}

func writePDF(path string, doc render.Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := render.Render(f, doc); err != nil {
		f.Close()
		return fmt.Errorf("render %s: %w", path, err)
	}
	return f.Close()
}
