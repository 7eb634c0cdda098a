package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/and161185/libdesk/internal/service"
	"github.com/and161185/libdesk/internal/session"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.prompt.fill(&username, "Username: ", false); err != nil {
				return err
			}
			if err := a.prompt.fill(&password, "Password: ", true); err != nil {
				return err
			}
			res, err := a.auth.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			if a.asJSON {
				printJSON(a.out, res.Session.Profile)
				return nil
			}
			return a.follow(cmd.Context(), res.Next)
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var f service.RegistrationForm
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, q := range []struct {
				dst    *string
				label  string
				secret bool
			}{
				{&f.FirstName, "First name: ", false},
				{&f.LastName, "Last name: ", false},
				{&f.Phone, "Phone (10 digits): ", false},
				{&f.Address, "Address: ", false},
				{&f.Username, "Username: ", false},
				{&f.Email, "Email: ", false},
				{&f.Password, "Password: ", true},
				{&f.ConfirmPassword, "Confirm password: ", true},
			} {
				if err := a.prompt.fill(q.dst, q.label, q.secret); err != nil {
					return err
				}
			}
			nav, err := a.auth.Register(cmd.Context(), f)
			if err != nil {
				return err
			}
			return a.follow(cmd.Context(), nav)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.FirstName, "first-name", "", "first name")
	fl.StringVar(&f.LastName, "last-name", "", "last name")
	fl.StringVar(&f.Phone, "phone", "", "phone number, 10 digits")
	fl.StringVar(&f.Address, "address", "", "postal address")
	fl.StringVarP(&f.Username, "username", "u", "", "username, at least 3 characters")
	fl.StringVar(&f.Email, "email", "", "email address")
	fl.StringVarP(&f.Password, "password", "p", "", "password, at least 8 characters (prompted when omitted)")
	fl.StringVar(&f.ConfirmPassword, "confirm-password", "", "password again (prompted when omitted)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			nav, err := a.auth.Logout(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out.")
			return a.follow(cmd.Context(), nav)
		},
	}
}

// tokenClaims reads sub/exp from a JWT without verifying it. Display only:
// the backend stays the judge of the token.
func tokenClaims(tok string) (sub string, exp time.Time, ok bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err != nil {
		return "", time.Time{}, false
	}
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	return claims.Subject, exp, true
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := session.Require(cmd.Context(), a.store)
			if err != nil {
				return err
			}
			if a.asJSON {
				printJSON(a.out, s.Profile)
				return nil
			}
			p := s.Profile
			fmt.Fprintf(a.out, "%s (id %d)\n", p.Username, p.ID)
			if name := strings.TrimSpace(p.FirstName + " " + p.LastName); name != "" {
				fmt.Fprintf(a.out, "  name:  %s\n", name)
			}
			if p.Email != "" {
				fmt.Fprintf(a.out, "  email: %s\n", p.Email)
			}
			fmt.Fprintf(a.out, "  roles: %s\n", strings.Join(p.Roles, ", "))
			if sub, exp, ok := tokenClaims(s.Token); ok {
				if sub != "" {
					fmt.Fprintf(a.out, "  token subject: %s\n", sub)
				}
				if !exp.IsZero() {
					state := "valid until"
					if time.Now().After(exp) {
						state = "expired at"
					}
					fmt.Fprintf(a.out, "  token %s %s\n", state, exp.Local().Format(time.RFC3339))
				}
			}
			return nil
		},
	}
}
