package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	domainwiki "wikihub/app/internal/domain/wiki"
)

type migrateResult struct {
	Database string   `json:"database" yaml:"database"`
	Applied  []string `json:"applied" yaml:"applied"`
}

type pageRow struct {
	Slug      string    `json:"slug" yaml:"slug"`
	Title     string    `json:"title" yaml:"title"`
	Directory string    `json:"directory,omitempty" yaml:"directory,omitempty"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

type resolution struct {
	Kind            string `json:"kind" yaml:"kind"`
	Title           string `json:"title" yaml:"title"`
	Slug            string `json:"slug,omitempty" yaml:"slug,omitempty"`
	InvalidEncoding bool   `json:"invalid_encoding" yaml:"invalid_encoding"`
}

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema and data migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(_ context.Context, s *session) error {
				result := migrateResult{Database: s.dbPath, Applied: s.storage.Applied}
				if result.Applied == nil {
					result.Applied = []string{}
				}

				return render(cmd.OutOrStdout(), opts.output, result, func(w io.Writer) {
					if len(result.Applied) == 0 {
						fmt.Fprintln(w, "No pending migrations.")
						return
					}
					row(w, "VERSION", "STATUS")
					for _, version := range result.Applied {
						row(w, version, "applied")
					}
				})
			})
		},
	}
}

func newPagesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "pages <kind> <path>",
		Short: "List the pages of a wiki",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := parseContainer(args[0], args[1])
			if err != nil {
				return err
			}

			return opts.run(cmd, func(ctx context.Context, s *session) error {
				result, err := s.service.Pages(ctx, container)
				if err != nil {
					return err
				}

				rows := make([]pageRow, 0, len(result.Pages))
				for _, page := range result.Pages {
					rows = append(rows, pageRow{
						Slug:      page.Slug,
						Title:     page.Title,
						Directory: page.Directory(),
						UpdatedAt: page.UpdatedAt.UTC(),
					})
				}

				return render(cmd.OutOrStdout(), opts.output, rows, func(w io.Writer) {
					row(w, "SLUG", "TITLE", "UPDATED")
					for _, r := range rows {
						row(w, r.Slug, r.Title, r.UpdatedAt.Format(time.RFC3339))
					}
				})
			})
		},
	}
}

func newResolveCommand(opts *options) *cobra.Command {
	var randomTitle bool

	cmd := &cobra.Command{
		Use:   "resolve <kind> <path> <identifier>",
		Short: "Show how an identifier resolves to a page",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := parseContainer(args[0], args[1])
			if err != nil {
				return err
			}

			return opts.run(cmd, func(ctx context.Context, s *session) error {
				resolved, err := s.resolver.Resolve(ctx, container, args[2], randomTitle)
				if err != nil {
					return err
				}

				result := resolution{
					Kind:            resolved.Kind.String(),
					Title:           resolved.Title,
					InvalidEncoding: resolved.InvalidEncoding,
				}
				if resolved.Page != nil {
					result.Slug = resolved.Page.Slug
				}

				return render(cmd.OutOrStdout(), opts.output, result, func(w io.Writer) {
					row(w, "KIND", "TITLE", "SLUG")
					row(w, result.Kind, result.Title, result.Slug)
				})
			})
		},
	}

	cmd.Flags().BoolVar(&randomTitle, "random-title", false, "Leave the title of a new page blank")
	return cmd
}

func newShowCommand(opts *options) *cobra.Command {
	var (
		raw   bool
		style string
		width int
	)

	cmd := &cobra.Command{
		Use:   "show <kind> <path> <identifier>",
		Short: "Print a page in the terminal",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := parseContainer(args[0], args[1])
			if err != nil {
				return err
			}

			return opts.run(cmd, func(ctx context.Context, s *session) error {
				resolved, err := s.resolver.Resolve(ctx, container, args[2], false)
				if err != nil {
					return err
				}
				if !resolved.Existing() {
					return eris.Wrapf(domainwiki.ErrPageNotFound, "page %q", args[2])
				}

				page := resolved.Page
				out := cmd.OutOrStdout()
				if raw || resolved.InvalidEncoding {
					_, err := io.WriteString(out, page.Content)
					return eris.Wrap(err, "writing page content")
				}

				renderer, err := newTermRenderer(style, width)
				if err != nil {
					return err
				}

				rendered, err := renderer.Render("# " + page.Title + "\n\n" + page.Content)
				if err != nil {
					return eris.Wrapf(err, "rendering page %s", page.Slug)
				}

				_, err = io.WriteString(out, rendered)
				return eris.Wrap(err, "writing page")
			})
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print the stored markup without rendering")
	cmd.Flags().StringVar(&style, "style", "auto", "Glamour style (auto, dark, light, notty)")
	cmd.Flags().IntVar(&width, "width", 80, "Word wrap width")
	return cmd
}

func newTermRenderer(style string, width int) (*glamour.TermRenderer, error) {
	styleOption := glamour.WithAutoStyle()
	if style != "" && style != "auto" {
		styleOption = glamour.WithStandardStyle(style)
	}

	renderer, err := glamour.NewTermRenderer(styleOption, glamour.WithWordWrap(width))
	if err != nil {
		return nil, eris.Wrap(err, "creating terminal renderer")
	}
	return renderer, nil
}

func newVisibilityCommand(opts *options) *cobra.Command {
	var public bool

	cmd := &cobra.Command{
		Use:   "visibility <kind> <path>",
		Short: "Make a wiki readable by anonymous users, or private again",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := parseContainer(args[0], args[1])
			if err != nil {
				return err
			}
			container.Public = public

			return opts.run(cmd, func(ctx context.Context, s *session) error {
				if err := s.storage.Stores.SetVisibility(ctx, container); err != nil {
					return err
				}

				visibility := "private"
				if public {
					visibility = "public"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s is now %s\n", container.Kind, container.Path, visibility)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&public, "public", false, "Allow anonymous readers")
	return cmd
}
