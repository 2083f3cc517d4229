package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tracked/backend/internal/models"
	"github.com/tracked/backend/internal/repositories"
	"github.com/tracked/backend/internal/services"
)

var errPasswordMismatch = errors.New("passwords do not match")

// accountCreator creates accounts without a session check
type accountCreator interface {
	CreateAccount(ctx context.Context, req *models.CreateUserRequest) (*models.User, error)
}

func newCreateUserCmd(e *env) *cobra.Command {
	req := &models.CreateUserRequest{}

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create an account with any role",
		Long: `Create an account with any role. The password is prompted twice and never echoed.

Roles: SUPER_ADMIN, ADMIN, ADMIN_STAFF, ADMIN_FACILITIES, ADMIN_EXTRACURRICULAR,
ADMIN_RESOURCES, ADMIN_CURRICULUM, ADMIN_POLICIES, USER.

Examples:
  tracked-admin create-user --email root@example.com --role SUPER_ADMIN
  tracked-admin create-user --email student@example.com --name "Alice" --lrn-id 123456789012`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users := services.NewUserService(repositories.NewUserRepository(e.db, e.logger), e.logger)
			return runCreateUser(cmd.Context(), users, cmd.OutOrStdout(), req)
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "Account email (required)")
	cmd.Flags().StringVar(&req.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&req.Role, "role", models.RoleUser.String(), "Account role")
	cmd.Flags().StringVar(&req.LRNID, "lrn-id", "", "Learner reference number, USER accounts only")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func runCreateUser(ctx context.Context, users accountCreator, out io.Writer, req *models.CreateUserRequest) error {
	password, err := promptPassword(out)
	if err != nil {
		return err
	}
	req.Password = password

	user, err := users.CreateAccount(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(out, "created user %d (%s, %s)\n", user.ID, user.Email, user.Role)
	return nil
}

func promptPassword(out io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())

	fmt.Fprint(out, "Enter password: ")
	pwd, err := readPasswordFunc(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	fmt.Fprint(out, "Repeat password: ")
	confirm, err := readPasswordFunc(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	if string(pwd) != string(confirm) {
		return "", errPasswordMismatch
	}
	return string(pwd), nil
}
