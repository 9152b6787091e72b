package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/forumfilter/internal/application"
	"github.com/ericfisherdev/forumfilter/internal/domain/model"
)

func newShowCommand(opts *rootOptions) *cobra.Command {
	var style string
	var raw bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show ignored users and per-thread ignores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withPresenter(cmd, func(p *application.Presenter) error {
				view, err := p.Load(cmd.Context())
				if err != nil {
					return err
				}
				md := view.Markdown()
				if raw {
					_, err := io.WriteString(cmd.OutOrStdout(), md)
					return err
				}
				out, err := renderMarkdown(md, style)
				if err != nil {
					return err
				}
				_, err = io.WriteString(cmd.OutOrStdout(), out)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&style, "style", "dark", "glamour style (dark, light, notty, ascii)")
	cmd.Flags().BoolVar(&raw, "raw", false, "print Markdown without rendering")
	return cmd
}

func newUnignoreCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unignore <username>",
		Short: "Stop ignoring a user everywhere",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withPresenter(cmd, func(p *application.Presenter) error {
				if err := p.Unignore(cmd.Context(), args[0]); err != nil {
					return err
				}
				printNotice(cmd.OutOrStdout(), fmt.Sprintf("%s är inte längre ignorerad.", args[0]))
				return nil
			})
		},
	}
}

func newUnlightCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unlight <thread-key> <username>",
		Short: "Stop ignoring a user in one thread",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withPresenter(cmd, func(p *application.Presenter) error {
				removed, err := p.RemoveLightIgnore(cmd.Context(), model.ThreadKey(args[0]), args[1])
				if err != nil {
					return err
				}
				if !removed {
					printWarning(cmd.OutOrStdout(), fmt.Sprintf("%s var inte ignorerad i %s.", args[1], args[0]))
					return nil
				}
				printNotice(cmd.OutOrStdout(), fmt.Sprintf("%s är inte längre ignorerad i %s.", args[1], args[0]))
				return nil
			})
		},
	}
}

func newResetCommand(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear every hidden, marked, liked and ignored entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes && !confirm(cmd, "Är du säker på att du vill återställa all data? [j/N] ") {
				printWarning(cmd.OutOrStdout(), "Avbrutet.")
				return nil
			}
			return opts.withPresenter(cmd, func(p *application.Presenter) error {
				if err := p.Reset(cmd.Context()); err != nil {
					return err
				}
				printNotice(cmd.OutOrStdout(), "All data har återställts.")
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every collection to a JSON backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withPresenter(cmd, func(p *application.Presenter) error {
				data, err := p.Export(cmd.Context())
				if err != nil {
					return err
				}
				if output == "-" {
					_, err := cmd.OutOrStdout().Write(data)
					return err
				}
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return fmt.Errorf("writing %s: %w", output, err)
				}
				printNotice(cmd.ErrOrStderr(), fmt.Sprintf("Exporterat till %s.", output))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", application.DefaultExportFileName, `output file, "-" for stdout`)
	return cmd
}

func newImportCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: `Restore a JSON backup, "-" reads stdin`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("opening %s: %w", args[0], err)
				}
				defer f.Close()
				in = f
			}
			return opts.withPresenter(cmd, func(p *application.Presenter) error {
				if err := p.Import(cmd.Context(), in); err != nil {
					return err
				}
				printNotice(cmd.OutOrStdout(), "Data importerad.")
				return nil
			})
		},
	}
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "j", "ja", "y", "yes":
		return true
	}
	return false
}
