package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"feedlog/internal/keyregistry"
	"feedlog/internal/namespace/secrets"
	"feedlog/internal/platform/postgres"
)

// keyStore is the registry surface the key commands need.
type keyStore interface {
	keyregistry.Writer
	List(ctx context.Context) ([]keyregistry.Key, error)
}

// keyOpener opens the key registry; the returned func releases it.
type keyOpener func(ctx context.Context, databaseURL string) (keyStore, func() error, error)

func openPostgresKeys(ctx context.Context, databaseURL string) (keyStore, func() error, error) {
	if databaseURL == "" {
		return nil, nil, errors.New("DATABASE_URL or --database-url is required")
	}
	db, err := postgres.Open(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return keyregistry.NewPostgres(db), db.Close, nil
}

func newRootCmd(open keyOpener) *cobra.Command {
	root := &cobra.Command{
		Use:           "feedctl",
		Short:         "Administer a feedlog deployment",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("database-url", os.Getenv("DATABASE_URL"), "Postgres connection URL")

	root.AddCommand(keysCmd(open))
	root.AddCommand(credentialsCmd())
	return root
}

func keysCmd(open keyOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the signing-key registry",
	}

	withKeys := func(cmd *cobra.Command, fn func(ctx context.Context, keys keyStore) error) error {
		url, _ := cmd.Flags().GetString("database-url")
		keys, release, err := open(cmd.Context(), url)
		if err != nil {
			return err
		}
		defer release()
		return fn(cmd.Context(), keys)
	}

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Replace issuer key sets from a manifest of JWKS files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("manifest")
			sets, err := keyregistry.LoadManifest(path)
			if err != nil {
				return err
			}
			return withKeys(cmd, func(ctx context.Context, keys keyStore) error {
				if err := keyregistry.Import(ctx, keys, sets); err != nil {
					return err
				}
				for _, set := range sets {
					fmt.Fprintf(cmd.OutOrStdout(), "imported %d key(s) for %s\n", len(set.Keys), set.Issuer)
				}
				return nil
			})
		},
	}
	importCmd.Flags().StringP("manifest", "m", "", "Path to the key manifest (YAML)")
	_ = importCmd.MarkFlagRequired("manifest")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered signing keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withKeys(cmd, func(ctx context.Context, keys keyStore) error {
				all, err := keys.List(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "KID\tISSUER\tBYTES")
				for _, k := range all {
					fmt.Fprintf(tw, "%s\t%s\t%d\n", k.KID, k.Issuer, len(k.DER))
				}
				return tw.Flush()
			})
		},
	}

	cmd.AddCommand(importCmd, listCmd)
	return cmd
}

func credentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Namespace credential helpers",
	}
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Print fresh owner and writer tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, err := secrets.Generate()
			if err != nil {
				return err
			}
			writer, err := secrets.Generate()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "owner_token=%s\nwriter_token=%s\n", owner, writer)
			return nil
		},
	}
	cmd.AddCommand(generate)
	return cmd
}
