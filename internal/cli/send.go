package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	appErrors "github.com/unclebandit/campaigner/internal/errors"
	"github.com/unclebandit/campaigner/internal/model"
)

func sendCmd(run appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "send [name] [index]",
		Short: "Send the campaign message to one recipient",
		Long: `Send the campaign message to the recipient at index (as listed by show).
Recipients that were already sent to, or that failed, are not sent again.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid recipient index %q", args[1])
			}

			return run(func(app *App) error {
				r, err := app.Service.SendToRecipient(cmd.Context(), args[0], index)
				if errors.Is(err, appErrors.ErrRecipientNotPending) {
					return fmt.Errorf("%w\nHint: run 'campaigner show %s' to see every result", err, args[0])
				}
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if r.Status == model.StatusSent {
					fmt.Fprintf(out, "%s %s\n", color.New(color.FgGreen).Sprint("✓"), r.Result())
				} else {
					fmt.Fprintf(out, "%s %s\n", color.New(color.FgRed).Sprint("✗"), r.Result())
				}
				return nil
			})
		},
	}
}

func responsesCmd(run appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "responses [name] [index]",
		Short: "Show the latest reply from one recipient",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid recipient index %q", args[1])
			}

			return run(func(app *App) error {
				resp, err := app.Service.LatestResponse(cmd.Context(), args[0], index)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s (%s)\n", resp.Name, resp.Phone)
				if resp.ReceivedAt != "" {
					fmt.Fprintf(out, "  Received: %s\n", resp.ReceivedAt)
				}
				fmt.Fprintf(out, "  %s\n", resp.Response)
				return nil
			})
		},
	}
}

func previewCmd(run appRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview [name]",
		Short: "Show the message text as a recipient would receive it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recipient, _ := cmd.Flags().GetString("recipient")
			var override *string
			if cmd.Flags().Changed("template") {
				t, _ := cmd.Flags().GetString("template")
				override = &t
			}

			return run(func(app *App) error {
				text, err := app.Service.RenderPreview(args[0], recipient, override)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			})
		},
	}
	cmd.Flags().String("recipient", "", "recipient name to personalize for")
	cmd.Flags().String("template", "", "preview this template instead of the stored one")
	return cmd
}

func statsCmd(run appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [name]",
		Short: "Summarize sends, failures and clicks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(app *App) error {
				st, err := app.Service.CampaignStats(args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Campaign: %s\n", args[0])
				fmt.Fprintf(out, "  Total:       %d\n", st.Total)
				fmt.Fprintf(out, "  Sent:        %d\n", st.Sent)
				fmt.Fprintf(out, "  Failed:      %d\n", st.Failed)
				fmt.Fprintf(out, "  Not sent:    %d\n", st.NotSent)
				fmt.Fprintf(out, "  Clicked:     %d\n", st.Clicked)
				fmt.Fprintf(out, "  Not clicked: %d\n", st.NotClicked)

				if len(st.FailedRecipients) > 0 {
					fmt.Fprintln(out, "\nFailed:")
					for _, f := range st.FailedRecipients {
						fmt.Fprintf(out, "  [%d] %s (%s): %s\n", f.Index, f.Name, f.Phone, f.Detail)
					}
				}
				return nil
			})
		},
	}
}
