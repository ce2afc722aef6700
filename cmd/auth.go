package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/frenchbreeze/breeze/internal/identity"
	"github.com/frenchbreeze/breeze/internal/ui/theme"
	"github.com/frenchbreeze/breeze/internal/ui/views"
)

var signUpCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account with email and password",
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openLearner(cmd, false)
		if err != nil {
			return err
		}
		defer l.Close()

		in := bufio.NewScanner(os.Stdin)
		email, _ := cmd.Flags().GetString("email")
		if email == "" {
			email = prompt(in, "Email: ")
		}
		password, _ := cmd.Flags().GetString("password")
		confirm := password
		if password == "" {
			password = prompt(in, "Password: ")
			confirm = prompt(in, "Confirm password: ")
		}
		if password != confirm {
			return errors.New("Passwords do not match.")
		}

		if _, err := l.client.SignUp(cmd.Context(), email, password); err != nil {
			return authFailure(err)
		}
		fmt.Println(theme.Correct.Render("Account created. Bienvenue!"))
		fmt.Println(views.Onboarding(l.manager.State().Profile))
		return nil
	},
}

var signInCmd = &cobra.Command{
	Use:   "signin",
	Short: "Sign in with email and password, or --provider google --id-token <token>",
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openLearner(cmd, false)
		if err != nil {
			return err
		}
		defer l.Close()

		if provider, _ := cmd.Flags().GetString("provider"); provider != "" {
			token, _ := cmd.Flags().GetString("id-token")
			if _, err := l.client.SignInWithSocial(cmd.Context(), provider, token); err != nil {
				return authFailure(err)
			}
		} else {
			in := bufio.NewScanner(os.Stdin)
			email, _ := cmd.Flags().GetString("email")
			if email == "" {
				email = prompt(in, "Email: ")
			}
			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				password = prompt(in, "Password: ")
			}
			if _, err := l.client.SignIn(cmd.Context(), email, password); err != nil {
				return authFailure(err)
			}
		}

		p := l.manager.State().Profile
		if !p.Onboarded() {
			fmt.Println(views.Onboarding(p))
			return nil
		}
		fmt.Println(theme.Correct.Render("Signed in. Bon retour, " + p.Name + "!"))
		return nil
	},
}

var signOutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Sign out and forget the cached session",
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openLearner(cmd, false)
		if err != nil {
			return err
		}
		defer l.Close()

		if l.client.Current() == nil {
			fmt.Println("Not signed in.")
			return nil
		}
		l.client.SignOut()
		fmt.Println("Signed out. À bientôt!")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openLearner(cmd, true)
		if err != nil {
			return err
		}
		defer l.Close()

		id := l.client.Current()
		st := l.manager.State()
		fmt.Printf("%-10s %s\n", "Email:", id.Email)
		fmt.Printf("%-10s %s\n", "Provider:", id.Provider)
		fmt.Printf("%-10s %s\n", "Name:", orDash(st.Profile.Name))
		fmt.Printf("%-10s %s\n", "Level:", orDash(st.Profile.Level.String()))
		fmt.Printf("%-10s %d\n", "Streak:", st.Profile.DailyStreak)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{signUpCmd, signInCmd} {
		c.Flags().String("email", "", "Account email (prompted when empty)")
		c.Flags().String("password", "", "Account password (prompted when empty)")
	}
	signInCmd.Flags().String("provider", "", "Third-party provider, e.g. google")
	signInCmd.Flags().String("id-token", "", "ID token issued by the provider's sign-in flow")
}

func prompt(in *bufio.Scanner, label string) string {
	fmt.Print(label)
	if !in.Scan() {
		return ""
	}
	return strings.TrimSpace(in.Text())
}

// authFailure turns an identity error into the message shown to the learner.
func authFailure(err error) error {
	var ae *identity.AuthError
	if errors.As(err, &ae) {
		return errors.New(ae.UserMessage())
	}
	return err
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
