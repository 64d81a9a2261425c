package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/JaimeStill/rag-lab/internal/identity"
	"github.com/JaimeStill/rag-lab/internal/users"
	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage the credential table",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	Args:  cobra.NoArgs,
	RunE:  runUsersList,
}

var usersAddCmd = &cobra.Command{
	Use:   "add [email]",
	Short: "Create an account",
	Long:  `Creates an account. The password is read from --password or RAGCTL_PASSWORD.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersAdd,
}

var usersRoleCmd = &cobra.Command{
	Use:   "role [email] [admin|user]",
	Short: "Change an account's role",
	Args:  cobra.ExactArgs(2),
	RunE:  runUsersRole,
}

var usersDisableCmd = &cobra.Command{
	Use:   "disable [email]",
	Short: "Disable an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setDisabled(cmd, args[0], true)
	},
}

var usersEnableCmd = &cobra.Command{
	Use:   "enable [email]",
	Short: "Re-enable a disabled account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setDisabled(cmd, args[0], false)
	},
}

var (
	addPassword string
	addRole     string
)

func init() {
	usersAddCmd.Flags().StringVarP(&addPassword, "password", "p", "", "Account password")
	usersAddCmd.Flags().StringVarP(&addRole, "role", "r", string(identity.RoleUser), "Account role (admin or user)")

	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersAddCmd)
	usersCmd.AddCommand(usersRoleCmd)
	usersCmd.AddCommand(usersDisableCmd)
	usersCmd.AddCommand(usersEnableCmd)
	rootCmd.AddCommand(usersCmd)
}

func openUsers() (users.System, error) {
	return users.New(&cfg.Users, logger)
}

func parseRole(s string) (identity.Role, error) {
	switch r := identity.Role(s); r {
	case identity.RoleAdmin, identity.RoleUser:
		return r, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", users.ErrInvalid, s)
	}
}

func runUsersList(cmd *cobra.Command, _ []string) error {
	sys, err := openUsers()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EMAIL\tROLE\tDISABLED")
	for _, u := range sys.List() {
		fmt.Fprintf(w, "%s\t%s\t%t\n", u.Email, u.Role, u.Disabled)
	}
	return w.Flush()
}

func runUsersAdd(cmd *cobra.Command, args []string) error {
	password := addPassword
	if password == "" {
		password = os.Getenv("RAGCTL_PASSWORD")
	}
	if password == "" {
		return errors.New("password required: pass --password or set RAGCTL_PASSWORD")
	}

	role, err := parseRole(addRole)
	if err != nil {
		return err
	}

	sys, err := openUsers()
	if err != nil {
		return err
	}

	u, err := sys.Create(args[0], password, role)
	if err != nil {
		return err
	}

	cmd.Printf("created %s (%s)\n", u.Email, u.Role)
	return nil
}

func runUsersRole(cmd *cobra.Command, args []string) error {
	role, err := parseRole(args[1])
	if err != nil {
		return err
	}

	sys, err := openUsers()
	if err != nil {
		return err
	}

	if err := sys.SetRole(args[0], role); err != nil {
		return err
	}

	cmd.Printf("%s is now %s\n", args[0], role)
	return nil
}

func setDisabled(cmd *cobra.Command, email string, disabled bool) error {
	sys, err := openUsers()
	if err != nil {
		return err
	}

	if err := sys.SetDisabled(email, disabled); err != nil {
		return err
	}

	state := "enabled"
	if disabled {
		state = "disabled"
	}
	cmd.Printf("%s %s\n", email, state)
	return nil
}
