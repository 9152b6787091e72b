// Package cli implements forumctl, the terminal front end of the popup.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/forumfilter/internal/application"
	"github.com/ericfisherdev/forumfilter/internal/domain/protocol"
)

// Connector builds a Presenter talking to the content host at hostURL. The
// returned close function releases the store connection.
type Connector func(ctx context.Context, hostURL string) (*application.Presenter, func() error, error)

type rootOptions struct {
	hostURL string
	connect Connector
}

// NewRootCommand creates the forumctl command tree. defaultHost is the
// content host used when --host is not given.
func NewRootCommand(connect Connector, defaultHost string) *cobra.Command {
	opts := &rootOptions{connect: connect}

	root := &cobra.Command{
		Use:           "forumctl",
		Short:         "Inspect and edit forum filter preferences through the active forum tab",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.hostURL, "host", defaultHost, "content host base URL")

	root.AddCommand(
		newShowCommand(opts),
		newUnignoreCommand(opts),
		newUnlightCommand(opts),
		newResetCommand(opts),
		newExportCommand(opts),
		newImportCommand(opts),
	)
	return root
}

// withPresenter connects, runs fn and releases the connection.
func (o *rootOptions) withPresenter(cmd *cobra.Command, fn func(p *application.Presenter) error) (err error) {
	p, closeFn, err := o.connect(cmd.Context(), o.hostURL)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", o.hostURL, err)
	}
	defer func() {
		if closeErr := closeFn(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(p)
}

// Execute runs root and prints a styled error. It returns the process exit code.
func Execute(ctx context.Context, root *cobra.Command) int {
	if err := root.ExecuteContext(ctx); err != nil {
		printError(root.ErrOrStderr(), err)
		return 1
	}
	return 0
}

func printError(w io.Writer, err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, application.ErrNoForumTab):
		msg = "Öppna en flashback.org-flik först."
	case errors.Is(err, application.ErrInvalidBackup):
		msg = "Ogiltig JSON-fil."
	case errors.Is(err, protocol.ErrNotHandled):
		msg = "Fliken svarade inte. Ladda om sidan och försök igen."
	}
	fmt.Fprintln(w, errorStyle.Render(msg))
}
