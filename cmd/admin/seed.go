package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/tracked/backend/internal/apperrors"
	"github.com/tracked/backend/internal/broadcast"
	"github.com/tracked/backend/internal/metrics"
	"github.com/tracked/backend/internal/models"
	"github.com/tracked/backend/internal/repositories"
	"github.com/tracked/backend/internal/services"
)

// demoAccounts are created by "seed". The student account also receives demoFeedback.
var demoAccounts = []models.CreateUserRequest{
	{Email: "admin@example.com", Name: "Super Admin", Role: "SUPER_ADMIN"},
	{Email: "staff@example.com", Name: "Staff Admin", Role: "ADMIN_STAFF"},
	{Email: "facilities@example.com", Name: "Facilities Admin", Role: "ADMIN_FACILITIES"},
	{Email: "user@example.com", Name: "Demo Student", Role: "USER", LRNID: "100000000001"},
}

var demoFeedback = []models.CreateFeedbackRequest{
	{Title: "Great mentoring", Content: "My adviser always makes time to answer questions.", Rating: 5, Category: string(models.CategoryStaff)},
	{Title: "Broken air conditioner", Content: "The air conditioner in room 204 has not worked for a week.", Rating: 2, Category: string(models.CategoryFacilities)},
}

type userFinder interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

type feedbackCreator interface {
	Create(ctx context.Context, session models.Session, req *models.CreateFeedbackRequest) (*models.Feedback, error)
}

// seeder creates demo data; running it twice does not duplicate anything
type seeder struct {
	accounts accountCreator
	users    userFinder
	feedback feedbackCreator
	out      io.Writer
}

func newSeedCmd(e *env) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create demo accounts and feedback",
		Long: `Create a super admin, two category admins and a student account sharing one
password, and submit two feedback entries as the student. Accounts that already
exist are left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userRepo := repositories.NewUserRepository(e.db, e.logger)
			m := metrics.New(prometheus.NewRegistry())
			// Nobody listens to a CLI process, the hub only satisfies the publisher dependency
			hub := broadcast.NewHub(1, e.logger, m)
			defer hub.Close()

			s := &seeder{
				accounts: services.NewUserService(userRepo, e.logger),
				users:    userRepo,
				feedback: services.NewFeedbackService(repositories.NewFeedbackRepository(e.db, e.logger), hub, m, e.logger),
				out:      cmd.OutOrStdout(),
			}
			return s.run(cmd.Context(), password)
		},
	}
	cmd.Flags().StringVar(&password, "password", "password123", "Password for every demo account")

	return cmd
}

func (s *seeder) run(ctx context.Context, password string) error {
	for _, account := range demoAccounts {
		req := account
		req.Password = password

		user, created, err := s.ensureAccount(ctx, &req)
		if err != nil {
			return err
		}
		if !created {
			fmt.Fprintf(s.out, "skipped %s: already exists\n", user.Email)
			continue
		}
		fmt.Fprintf(s.out, "created %s (%s)\n", user.Email, user.Role)

		if user.Role != models.RoleUser {
			continue
		}
		session := models.Session{UserID: user.ID, Role: user.Role}
		for _, fb := range demoFeedback {
			fbReq := fb
			f, err := s.feedback.Create(ctx, session, &fbReq)
			if err != nil {
				return fmt.Errorf("failed to create demo feedback: %w", err)
			}
			fmt.Fprintf(s.out, "created feedback %d %q\n", f.ID, f.Title)
		}
	}
	return nil
}

// ensureAccount creates the account, or returns the stored one when the email is taken
func (s *seeder) ensureAccount(ctx context.Context, req *models.CreateUserRequest) (*models.User, bool, error) {
	user, err := s.accounts.CreateAccount(ctx, req)
	if err == nil {
		return user, true, nil
	}

	var verr *apperrors.ValidationError
	if !errors.Is(err, apperrors.ErrInvalidInput) || errors.As(err, &verr) {
		return nil, false, fmt.Errorf("failed to create %s: %w", req.Email, err)
	}

	existing, lookupErr := s.users.GetByEmail(ctx, req.Email)
	if lookupErr != nil {
		return nil, false, fmt.Errorf("failed to create %s: %w", req.Email, err)
	}
	return existing, false, nil
}
