// chat.go implements "symptomctl chat", an interactive symptom check on stdin.
package cli

import (
	"bufio"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"symptom-checker/internal/alerting"
	"symptom-checker/internal/engine"
	"symptom-checker/internal/observability"
	"symptom-checker/internal/usecase"
)

func newChatCmd(opts *rootOptions) *cobra.Command {
	var statePath string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Run a symptom check interactively",
		Long: `Ask the symptom check questions on stdin and print the triage result.
With --state the conversation is stored in a JSON file and resumed from it
on the next run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts, statePath)
		},
	}
	cmd.Flags().StringVar(&statePath, "state", "", "JSON file holding the conversation state")
	return cmd
}

func runChat(cmd *cobra.Command, opts *rootOptions, statePath string) error {
	cat, err := loadCatalog(opts.contentPath)
	if err != nil {
		return err
	}
	log := observability.NewWithWriter(cmd.ErrOrStderr(), opts.logLevel)
	eng, err := engine.New(cat, engine.WithLogger(log))
	if err != nil {
		return err
	}
	store := newFileStore(statePath)
	svc, err := usecase.NewCheckService(eng, cat, store, alerting.LogNotifier{Log: log})
	if err != nil {
		return err
	}

	convID, err := store.ConversationID()
	if err != nil {
		return err
	}
	ctx := observability.WithCorrelationID(cmd.Context(), "symptomctl")
	out, err := svc.Check(ctx, usecase.CheckInput{ConversationID: convID})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	printResponse(w, out.Response)
	sc := bufio.NewScanner(cmd.InOrStdin())
	for !out.Response.State.Phase.Terminal() {
		fmt.Fprint(w, "> ")
		if !sc.Scan() {
			fmt.Fprintln(w)
			return sc.Err()
		}
		in, err := engine.ParseMessage(payloadKind(out.Response.MessageType), sc.Text())
		if err != nil {
			fmt.Fprintln(w, "Sorry, I couldn't read that. Please try again.")
			continue
		}
		out, err = svc.Check(ctx, usecase.CheckInput{ConversationID: out.ConversationID, Input: in})
		if err != nil {
			return err
		}
		printResponse(w, out.Response)
	}
	return nil
}

// payloadKind picks how a typed line is read for the question on screen.
func payloadKind(t engine.MessageType) string {
	switch t {
	case engine.MessageYesNo:
		return engine.PayloadButtonResponse
	case engine.MessageSymptomSelect, engine.MessageMultiSelect:
		return engine.PayloadMultiSelect
	case engine.MessageNumber:
		return engine.PayloadNumber
	default:
		return engine.PayloadText
	}
}

func printResponse(w io.Writer, r engine.Response) {
	fmt.Fprintln(w, r.Message)
	lastGroup := ""
	for _, o := range r.Options {
		if o.Group != "" && o.Group != lastGroup {
			fmt.Fprintf(w, "  %s:\n", o.Group)
			lastGroup = o.Group
		}
		fmt.Fprintf(w, "    [%s] %s\n", o.Value, o.Label)
	}
	if r.TriageLevel != nil {
		fmt.Fprintf(w, "Triage: %s\n", r.TriageLevel)
	}
}
