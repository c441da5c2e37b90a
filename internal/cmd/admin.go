package cmd

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kundliinsight/kundli/internal/core"
	"github.com/kundliinsight/kundli/internal/core/store"
	errwrap "github.com/kundliinsight/kundli/internal/errors"
	"github.com/kundliinsight/kundli/internal/observability"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin account",
	Long: `Create an admin account without going through the web setup flow.
The password is read from --password, or prompted for when omitted.`,
	RunE: runAdminCreate,
}

var adminPasswordCmd = &cobra.Command{
	Use:   "password",
	Short: "Reset an admin password",
	RunE:  runAdminPassword,
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminCreateCmd)
	adminCmd.AddCommand(adminPasswordCmd)

	for _, c := range []*cobra.Command{adminCreateCmd, adminPasswordCmd} {
		c.Flags().String("username", "", "account username")
		c.Flags().String("password", "", "account password (prompted when omitted)")
		_ = c.MarkFlagRequired("username")
	}
}

func runAdminCreate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	username, password, err := adminCredentials(cmd)
	if err != nil {
		return err
	}

	db, err := openStore(ctx, nil)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	user, err := db.CreateUser(ctx, username, password, true)
	if err != nil {
		return credentialError(err)
	}
	observability.CLILogger.Info("Admin account created",
		zap.String("username", user.Username),
		zap.String("id", user.ID),
	)
	return nil
}

func runAdminPassword(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	username, password, err := adminCredentials(cmd)
	if err != nil {
		return err
	}

	db, err := openStore(ctx, nil)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	if err := db.UpdatePassword(ctx, username, password); err != nil {
		return credentialError(err)
	}
	observability.CLILogger.Info("Password updated", zap.String("username", username))
	return nil
}

func adminCredentials(cmd *cobra.Command) (string, string, error) {
	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")
	username = strings.TrimSpace(username)

	if password == "" {
		value, err := promptForValue(cmd.ErrOrStderr(), cmd.InOrStdin(), "Password: ")
		if err != nil {
			return "", "", err
		}
		password = value
	}
	if err := core.ValidateCredentials(username, password); err != nil {
		return "", "", errwrap.NewValidationError(err.Error())
	}
	return username, password, nil
}

func credentialError(err error) error {
	switch {
	case errors.Is(err, store.ErrConflict):
		return errwrap.NewConflictError("username already exists")
	case errors.Is(err, store.ErrNotFound):
		return errwrap.NewNotFoundError("no such user")
	default:
		return err
	}
}
