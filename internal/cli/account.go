package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"cymbal-assist/internal/auth"
)

func newLoginCmd(app *App) *cobra.Command {
	var email, provider, idToken string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password or a federated provider token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var (
				user     auth.User
				password string
				err      error
			)
			if idToken != "" {
				user, err = app.auth.SignInWithIdP(ctx, provider, idToken)
			} else {
				if email == "" {
					if email, err = app.in.Prompt(app.out, "Email: "); err != nil {
						return err
					}
				}
				if password, err = app.in.ReadPassword(app.out, "Password: "); err != nil {
					return err
				}
				user, err = app.auth.SignIn(ctx, email, password)
			}
			if err != nil {
				return fmt.Errorf("sign in failed: %w", err)
			}

			app.display.PrintSuccess(fmt.Sprintf("Signed in as %s (%s)", user.DisplayName, user.Email))
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVar(&idToken, "id-token", "", "sign in with an identity provider id token instead of a password")
	cmd.Flags().StringVar(&provider, "provider", "google.com", "identity provider for --id-token")

	return cmd
}

func newSignupCmd(app *App) *cobra.Command {
	var email, name string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if email == "" {
				if email, err = app.in.Prompt(app.out, "Email: "); err != nil {
					return err
				}
			}
			password, err := app.in.ReadPassword(app.out, "Password: ")
			if err != nil {
				return err
			}
			confirm, err := app.in.ReadPassword(app.out, "Confirm password: ")
			if err != nil {
				return err
			}
			if password != confirm {
				return errors.New("passwords do not match")
			}

			user, err := app.auth.SignUp(cmd.Context(), email, password, name)
			if err != nil {
				return fmt.Errorf("sign up failed: %w", err)
			}

			app.display.PrintSuccess(fmt.Sprintf("Welcome, %s! Your account is ready.", user.DisplayName))
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&name, "name", "n", "", "display name")

	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if err := app.auth.SignOut(); err != nil {
				return err
			}
			app.display.PrintSuccess("Signed out")
			return nil
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			app.printWhoami()
		},
	}
}

func newProfileCmd(app *App) *cobra.Command {
	var name, photoURL string

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update your display name or photo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if name == "" && photoURL == "" {
				app.printWhoami()
				return nil
			}

			user, err := app.auth.UpdateProfile(cmd.Context(), name, photoURL)
			if err != nil {
				return fmt.Errorf("profile update failed: %w", err)
			}
			app.display.PrintSuccess(fmt.Sprintf("Profile updated: %s", user.DisplayName))
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "new display name")
	cmd.Flags().StringVar(&photoURL, "photo-url", "", "new profile photo URL")

	return cmd
}

func newResetPasswordCmd(app *App) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Email a password reset link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if email == "" {
				if email, err = app.in.Prompt(app.out, "Email: "); err != nil {
					return err
				}
			}
			if err := app.auth.SendPasswordReset(cmd.Context(), email); err != nil {
				return fmt.Errorf("password reset failed: %w", err)
			}
			app.display.PrintSuccess(fmt.Sprintf("Password reset email sent to %s", email))
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")

	return cmd
}

// printWhoami shows the signed-in identity
func (a *App) printWhoami() {
	user, ok := a.auth.CurrentUser()
	if !ok {
		a.display.PrintWarning("Not signed in. Run `cymbal login`.")
		return
	}

	a.display.PrintInfo(fmt.Sprintf("%s <%s>", user.DisplayName, user.Email))
	a.display.PrintInfo(fmt.Sprintf("User ID: %s", user.UID))
	if user.PhotoURL != "" {
		a.display.PrintInfo(fmt.Sprintf("Photo: %s", user.PhotoURL))
	}
}
