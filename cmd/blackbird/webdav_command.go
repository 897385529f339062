package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"blackbird/internal/webdavcfg"
)

func newWebdavCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webdav",
		Short: "WebDAV server helpers",
	}
	cmd.AddCommand(newWebdavSetupCommand(ctx))
	return cmd
}

func newWebdavSetupCommand(ctx *commandContext) *cobra.Command {
	var port int
	var username string
	var readOnly bool

	cmd := &cobra.Command{
		Use:   "setup PATH",
		Short: "Generate an nginx WebDAV site configuration for a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := webdavcfg.Generate(webdavcfg.Options{
				DatasetPath: args[0],
				Port:        port,
				Username:    username,
				ReadOnly:    readOnly,
			})
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			fmt.Fprintf(cmd.ErrOrStderr(), "# install as /etc/nginx/sites-available/%s and reload nginx\n",
				webdavcfg.SiteName(port))
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "Port to listen on")
	cmd.Flags().StringVar(&username, "username", "", "Protect with basic auth for this user")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "Deny mutating WebDAV methods")
	return cmd
}
