package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tendant/simple-posts/pkg/simpleposts"
	"github.com/tendant/simple-posts/pkg/simpleposts/config"
)

// ServiceFactory opens the posts service for one command run. The returned
// cleanup releases its connections.
type ServiceFactory func(ctx context.Context, opts ...config.Option) (simpleposts.Service, func(), error)

// NewRootCommand creates the posts-admin command tree writing to out
func NewRootCommand(out io.Writer, factory ServiceFactory) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "posts-admin",
		Short: "Simple Posts Admin CLI",
		Long: `Simple Posts Admin CLI

Manages posts and their media directly through the configured database and
storage. Configuration is read from the environment and from a .env file in
the current directory; run "posts-admin env" to list the variables.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)

	rootCmd.AddCommand(newListCommand(factory))
	rootCmd.AddCommand(newGetCommand(factory))
	rootCmd.AddCommand(newDeleteCommand(factory))
	rootCmd.AddCommand(newUploadCommand(factory))
	rootCmd.AddCommand(newMigrateCommand(factory))
	rootCmd.AddCommand(newEnvCommand())

	return rootCmd
}

func withService(cmd *cobra.Command, factory ServiceFactory, run func(simpleposts.Service) error, opts ...config.Option) error {
	svc, cleanup, err := factory(cmd.Context(), opts...)
	if err != nil {
		return err
	}
	defer cleanup()
	return run(svc)
}

func newListCommand(factory ServiceFactory) *cobra.Command {
	var (
		search  string
		limit   int64
		offset  int64
		useJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 || offset < 0 {
				return fmt.Errorf("limit and offset must not be negative")
			}
			return withService(cmd, factory, func(svc simpleposts.Service) error {
				list, err := svc.GetPosts(cmd.Context(), simpleposts.PostQuery{Search: search, Limit: limit, Skip: offset})
				if err != nil {
					return fmt.Errorf("failed to list posts: %w", err)
				}
				if useJSON {
					return writeJSON(cmd.OutOrStdout(), list)
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "ID\tTITLE\tCOVER\tBLOCKS\tUPDATED\n")
				for _, post := range list.Posts {
					cover := "-"
					if post.Resource != nil {
						cover = post.Resource.FileName
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
						post.ID,
						truncate(post.Title, 40),
						truncate(cover, 24),
						len(post.Content),
						post.UpdatedAt.Format("2006-01-02 15:04:05"))
				}
				if err := w.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\nShowing %d of %d posts\n", len(list.Posts), list.Count)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "Match title or short description")
	cmd.Flags().Int64Var(&limit, "limit", 20, "Maximum results, 0 for all")
	cmd.Flags().Int64Var(&offset, "offset", 0, "Pagination offset")
	cmd.Flags().BoolVar(&useJSON, "json", false, "Output as JSON")

	return cmd
}

func newGetCommand(factory ServiceFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <post-id>",
		Short: "Print a post as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, factory, func(svc simpleposts.Service) error {
				post, err := svc.GetPost(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), post)
			})
		},
	}
	return cmd
}

func newDeleteCommand(factory ServiceFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <post-id>...",
		Short: "Delete posts and all of their media",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, factory, func(svc simpleposts.Service) error {
				for _, id := range args {
					if err := svc.DeletePost(cmd.Context(), id); err != nil {
						return fmt.Errorf("failed to delete post %s: %w", id, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted post %s\n", id)
				}
				return nil
			})
		},
	}
	return cmd
}

func newUploadCommand(factory ServiceFactory) *cobra.Command {
	var cover bool

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a content resource or, with --cover, a cover file",
		Long: `Upload a file as an unclaimed media record and print its key. The key can
then be referenced when creating or updating a post.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open file: %w", err)
			}
			defer file.Close()

			info, err := file.Stat()
			if err != nil {
				return fmt.Errorf("failed to stat file: %w", err)
			}

			req := simpleposts.UploadMediaRequest{
				Reader:   file,
				FileName: filepath.Base(path),
				MimeType: mime.TypeByExtension(filepath.Ext(path)),
				Size:     info.Size(),
			}

			return withService(cmd, factory, func(svc simpleposts.Service) error {
				upload := svc.UploadResource
				if cover {
					upload = svc.UploadCoverFile
				}
				media, err := upload(cmd.Context(), req)
				if err != nil {
					return fmt.Errorf("upload failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Key: %s\n", media.Key)
				if media.URL != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "URL: %s\n", media.URL)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&cover, "cover", false, "Upload as a cover file")
	return cmd
}

func newMigrateCommand(factory ServiceFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database tables and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, factory, func(simpleposts.Service) error {
				fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
				return nil
			}, config.WithAutoMigrate(true))
		},
	}
}

func newEnvCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "List the environment variables read at startup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			usage, err := config.EnvUsage()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), usage)
			return nil
		},
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
