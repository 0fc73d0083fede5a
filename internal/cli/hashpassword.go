package cli

import (
	"fmt"

	"github.com/dmitrijs2005/credkeeper/internal/common"
	"github.com/dmitrijs2005/credkeeper/internal/server/auth"
	"github.com/dmitrijs2005/credkeeper/internal/server/config"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// NewHashPasswordCmd creates the hash-password subcommand. It is used to
// seed or repair password hashes directly in the database.
func NewHashPasswordCmd() *cobra.Command {
	var (
		algorithm string
		cost      int
	)

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password read from the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			hasher, err := auth.NewHasher(algorithm, cost)
			if err != nil {
				return oops.Code("CONFIG_INVALID").Wrap(err)
			}

			pw, err := GetConfirmedPassword(cmd.ErrOrStderr())
			if err != nil {
				return oops.Code("INPUT_FAILED").With("operation", "read password").Wrap(err)
			}
			defer common.WipeByteArray(pw)

			hash, err := hasher.Hash(string(pw))
			if err != nil {
				return oops.Code("HASH_FAILED").Wrap(err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}

	cmd.Flags().StringVar(&algorithm, "algorithm", config.HasherBcrypt, "hash algorithm (bcrypt|argon2id)")
	cmd.Flags().IntVar(&cost, "cost", 10, "bcrypt cost")

	return cmd
}
