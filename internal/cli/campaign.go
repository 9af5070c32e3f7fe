package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/unclebandit/campaigner/internal/model"
	"github.com/unclebandit/campaigner/internal/service"
)

type appRunner func(fn func(*App) error) error

func createCmd(run appRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a campaign from a tab-delimited recipient file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recipientsPath, _ := cmd.Flags().GetString("recipients")
			message, _ := cmd.Flags().GetString("message")
			messageFile, _ := cmd.Flags().GetString("message-file")
			baseURL, _ := cmd.Flags().GetString("base-url")
			imagePath, _ := cmd.Flags().GetString("image")

			if messageFile != "" {
				data, err := os.ReadFile(messageFile)
				if err != nil {
					return fmt.Errorf("failed to read message file: %w", err)
				}
				message = string(data)
			}

			data, err := os.ReadFile(recipientsPath)
			if err != nil {
				return fmt.Errorf("failed to read recipients: %w", err)
			}
			var image []byte
			if imagePath != "" {
				if image, err = os.ReadFile(imagePath); err != nil {
					return fmt.Errorf("failed to read image: %w", err)
				}
			}

			return run(func(app *App) error {
				table, err := app.Importer.Import(data)
				if err != nil {
					return err
				}
				campaign, err := app.Service.CreateCampaign(service.CreateCampaignInput{
					Name:            args[0],
					Rows:            table.Rows,
					MessageTemplate: message,
					Image:           image,
					BaseURL:         baseURL,
				})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "✓ Created campaign %s\n", campaign.Name)
				fmt.Fprintf(out, "  Recipients: %d (decoded as %s)\n", len(campaign.Recipients), table.Encoding)
				if campaign.Image != nil {
					fmt.Fprintf(out, "  Image: %d bytes\n", len(campaign.Image))
				}
				return nil
			})
		},
	}
	cmd.Flags().String("recipients", "", "tab-delimited recipient file")
	cmd.Flags().String("message", "", "message template ([Name] is replaced per recipient)")
	cmd.Flags().String("message-file", "", "read the message template from a file")
	cmd.Flags().String("base-url", "", "base URL for tracking links")
	cmd.Flags().String("image", "", "optional image to send after the text")
	cmd.MarkFlagRequired("recipients")
	cmd.MarkFlagRequired("base-url")
	cmd.MarkFlagsMutuallyExclusive("message", "message-file")
	return cmd
}

func listCmd(run appRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List campaigns, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			page, _ := cmd.Flags().GetInt("page")
			pageSize, _ := cmd.Flags().GetInt("page-size")

			return run(func(app *App) error {
				campaigns, pagination, err := app.Service.ListCampaigns(page, pageSize)
				if err != nil {
					return fmt.Errorf("failed to list campaigns: %w", err)
				}

				out := cmd.OutOrStdout()
				if len(campaigns) == 0 {
					fmt.Fprintln(out, "No campaigns found")
					return nil
				}

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tCREATED\tRECIPIENTS\tSENT\tFAILED\tNOT SENT")
				for _, c := range campaigns {
					fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n",
						c.Name, c.CreatedAt.Format("2006-01-02 15:04"), c.Recipients, c.Sent, c.Failed, c.NotSent)
				}
				w.Flush()
				if pagination["total_pages"] > 1 {
					fmt.Fprintf(out, "\nPage %d of %d (%d campaigns)\n",
						pagination["page"], pagination["total_pages"], pagination["total_count"])
				}
				return nil
			})
		},
	}
	cmd.Flags().Int("page", 1, "page number")
	cmd.Flags().Int("page-size", 20, "campaigns per page")
	return cmd
}

func showCmd(run appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: "Show a campaign and every recipient's result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(app *App) error {
				d, err := app.Service.GetCampaignDetailsWithStats(args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Campaign: %s\n", d.Name)
				fmt.Fprintf(out, "  Created:  %s\n", d.CreatedAt.Format("2006-01-02 15:04:05"))
				fmt.Fprintf(out, "  Base URL: %s\n", d.BaseURL)
				if d.HasImage {
					fmt.Fprintln(out, "  Image:    yes")
				}
				fmt.Fprintf(out, "\n%s\n\n", d.Preview)

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "#\tNAME\tPHONE\tSTATUS\tRESULT")
				for i, r := range d.Recipients {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i, r.Name, r.Phone, statusLabel(r.Status), r.Result())
				}
				w.Flush()
				return nil
			})
		},
	}
}

func deleteCmd(run appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [name]",
		Short: "Delete a campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(app *App) error {
				deleted, err := app.Service.DeleteCampaign(args[0])
				if err != nil {
					return fmt.Errorf("failed to delete campaign: %w", err)
				}
				if !deleted {
					fmt.Fprintf(cmd.OutOrStdout(), "No campaign named %s\n", args[0])
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted campaign %s\n", args[0])
				return nil
			})
		},
	}
}

func statusLabel(s model.Status) string {
	switch s {
	case model.StatusSent:
		return color.New(color.FgGreen).Sprint("sent")
	case model.StatusFailed:
		return color.New(color.FgRed).Sprint("failed")
	default:
		return color.New(color.FgYellow).Sprint("not sent")
	}
}
