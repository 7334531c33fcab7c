package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	email    string
	password string
	name     string
	token    string
)

func init() {
	for _, cmd := range []*cobra.Command{LoginCommand, RegisterCommand, ResetCommand} {
		cmd.Flags().StringVar(&email, "email", "", "account email")
		cmd.Flags().StringVar(&password, "password", "", "account password")
		_ = cmd.MarkFlagRequired("email")
		_ = cmd.MarkFlagRequired("password")
	}
	RegisterCommand.Flags().StringVar(&name, "name", "", "display name")

	RequestResetCommand.Flags().StringVar(&email, "email", "", "account email")
	_ = RequestResetCommand.MarkFlagRequired("email")
	ResetCommand.Flags().StringVar(&token, "token", "", "token from the reset email")
	_ = ResetCommand.MarkFlagRequired("token")

	PasswordCommand.AddCommand(RequestResetCommand, ResetCommand)
	RootCmd.AddCommand(LoginCommand, LogoutCommand, RegisterCommand, WhoamiCommand, PasswordCommand)
}

var LoginCommand = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := api.Login(cmd.Context(), email, password)
		if err != nil {
			return err
		}
		fmt.Printf("signed in as %s %v\n", sess.User.Email, sess.Roles)
		return nil
	},
}

var LogoutCommand = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return api.Logout(cmd.Context())
	},
}

var RegisterCommand = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, roles, err := api.Register(cmd.Context(), email, password, name)
		if err != nil {
			return err
		}
		fmt.Printf("registered %s %v\n", user.Email, roles)
		return nil
	},
}

var WhoamiCommand = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		me, err := api.Me(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(me)
	},
}

var PasswordCommand = &cobra.Command{
	Use:   "password",
	Short: "Reset a forgotten password",
}

var RequestResetCommand = &cobra.Command{
	Use:   "request",
	Short: "Send a password reset email",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := api.RequestPasswordReset(cmd.Context(), email)
		if err != nil {
			return err
		}
		fmt.Printf("reset email sent to %s (%s)\n", conf.Recipient, conf.MessageID)
		return nil
	},
}

var ResetCommand = &cobra.Command{
	Use:   "reset",
	Short: "Set a new password with a reset token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return api.ResetPassword(cmd.Context(), email, password, token)
	},
}
