package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/bikinibottom/spongeplay/internal/auth"
	"github.com/bikinibottom/spongeplay/internal/normalize"
	"github.com/bikinibottom/spongeplay/internal/parser"
	"github.com/spf13/cobra"
)

func normalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <url>...",
		Short: "Rewrite mobile video links to their desktop form",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, raw := range args {
				res := normalize.Normalize(raw)
				if res.Note != "" {
					fmt.Fprintf(out, "%s\t%s\n", res.URL, res.Note)
					continue
				}
				fmt.Fprintln(out, res.URL)
			}
			return nil
		},
	}
}

func playCmd() *cobra.Command {
	var parserKey string

	cmd := &cobra.Command{
		Use:   "play <url>",
		Short: "Print the playback URL for a video link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pb, err := parser.Builtin.Play(parserKey, args[0])
			if err != nil {
				return err
			}
			if pb.Note != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), pb.Note)
			}
			fmt.Fprintln(cmd.OutOrStdout(), pb.PlayURL)
			return nil
		},
	}
	cmd.Flags().StringVarP(&parserKey, "parser", "p", "", "Parser id or label (default: first parser)")
	return cmd
}

func parsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parsers",
		Short: "List the parser endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tLABEL\tPREFIX")
			for _, p := range parser.Builtin.All() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.Label, p.Prefix)
			}
			return w.Flush()
		},
	}
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for admin.password_hash",
		Long:  "Hashes the given password, or the first line of standard input when no argument is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := ""
			if len(args) == 1 {
				password = args[0]
			} else {
				scanner := bufio.NewScanner(cmd.InOrStdin())
				if scanner.Scan() {
					password = strings.TrimRight(scanner.Text(), "\r")
				}
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("read password: %w", err)
				}
			}

			hash, err := auth.HashPassword(password)
			if errors.Is(err, auth.ErrInvalidPassword) {
				return fmt.Errorf("password must be 1 to %d bytes", auth.MaxPasswordLength)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
