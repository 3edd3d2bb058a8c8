package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/userdash/userdash/internal/config"
	"github.com/userdash/userdash/internal/model"
	"github.com/userdash/userdash/internal/transport"
)

// userService is the slice of the transport the commands use.
type userService interface {
	ListAll(ctx context.Context) ([]model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	Create(ctx context.Context, in model.UserInput) (*model.User, error)
	Update(ctx context.Context, id string, patch model.UserPatch) (*model.User, error)
	Delete(ctx context.Context, id string) error
}

type cli struct {
	svc      userService
	envFile  string
	jsonOut  bool
	verbose  bool
	fixedSvc bool
}

// newRootCmd builds the command tree. A nil svc is built from configuration
// before each command runs.
func newRootCmd(svc userService) *cobra.Command {
	c := &cli{svc: svc, fixedSvc: svc != nil}

	root := &cobra.Command{
		Use:   "userctl",
		Short: "Manage users in the remote user service",
		Long: `userctl talks to the same user service endpoints as the console.

Endpoints are read from GET_USERS_URL, GET_USER_BY_ID_URL, CREATE_USER_URL,
UPDATE_USER_URL and DELETE_USER_URL, optionally seeded from a .env file.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.connect,
	}
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "print records as JSON")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log remote calls to stderr")

	root.AddCommand(
		c.listCmd(),
		c.getCmd(),
		c.createCmd(),
		c.updateCmd(),
		c.deleteCmd(),
	)
	return root
}

func (c *cli) connect(cmd *cobra.Command, args []string) error {
	if c.fixedSvc {
		return nil
	}

	cfg, err := config.LoadFiles(c.envFile)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	c.svc = transport.New(
		transport.Endpoints{
			List:    cfg.Endpoints.ListURL,
			GetByID: cfg.Endpoints.GetByIDURL,
			Create:  cfg.Endpoints.CreateURL,
			Update:  cfg.Endpoints.UpdateURL,
			Delete:  cfg.Endpoints.DeleteURL,
		},
		transport.WithHTTPClient(transport.NewHTTPClient(cfg.TransportTimeout)),
		transport.WithLogger(logger),
	)
	return nil
}

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := c.svc.ListAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("list users: %w", err)
			}
			return c.printList(cmd.OutOrStdout(), users)
		},
	}
}

func (c *cli) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := c.svc.GetByID(cmd.Context(), args[0])
			if transport.IsNotFound(err) {
				return fmt.Errorf("user %q not found", args[0])
			}
			if err != nil {
				return fmt.Errorf("get user: %w", err)
			}
			return c.printOne(cmd.OutOrStdout(), *user)
		},
	}
}

func (c *cli) createCmd() *cobra.Command {
	var (
		in  model.UserInput
		age string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Age = model.ParseAge(age)
			user, err := c.svc.Create(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			return c.printOne(cmd.OutOrStdout(), *user)
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "full name")
	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	cmd.Flags().StringVar(&age, "age", "0", "age in years")
	return cmd
}

func (c *cli) updateCmd() *cobra.Command {
	var name, email, age string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a user",
		Long:  "Only the fields given as flags are sent; the rest are left untouched.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch model.UserPatch
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("email") {
				patch.Email = &email
			}
			if cmd.Flags().Changed("age") {
				n := model.ParseAge(age)
				patch.Age = &n
			}
			if patch.IsEmpty() {
				return errors.New("nothing to update: pass --name, --email or --age")
			}

			user, err := c.svc.Update(cmd.Context(), args[0], patch)
			if err != nil {
				return fmt.Errorf("update user: %w", err)
			}
			if user == nil || !user.HasID() {
				fmt.Fprintf(cmd.OutOrStdout(), "Updated user %s\n", args[0])
				return nil
			}
			return c.printOne(cmd.OutOrStdout(), *user)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new full name")
	cmd.Flags().StringVar(&email, "email", "", "new email address")
	cmd.Flags().StringVar(&age, "age", "", "new age in years")
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user",
		Long:  "Asks for confirmation on stdin unless --yes is given. Only y or yes confirms.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), id) {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
			if err := c.svc.Delete(cmd.Context(), id); err != nil {
				return fmt.Errorf("delete user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted user %s\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func confirm(in io.Reader, out io.Writer, id string) bool {
	fmt.Fprintf(out, "Are you sure you want to delete user %s? [y/N] ", id)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func (c *cli) printOne(w io.Writer, user model.User) error {
	if c.jsonOut {
		return encodeJSON(w, user)
	}
	return printTable(w, []model.User{user})
}

func (c *cli) printList(w io.Writer, users []model.User) error {
	if c.jsonOut {
		if users == nil {
			users = []model.User{}
		}
		return encodeJSON(w, users)
	}
	return printTable(w, users)
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTable(w io.Writer, users []model.User) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tAGE\tCREATED")
	for _, u := range users {
		created := "-"
		if !u.CreatedAt.IsZero() {
			created = u.CreatedAt.UTC().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", u.ID, u.Name, u.Email, u.Age, created)
	}
	return tw.Flush()
}
