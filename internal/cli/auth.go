package cli

import (
	"context"
	"fmt"
	"os/user"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dl-alexandre/zsync/internal/auth"
	zerrors "github.com/dl-alexandre/zsync/internal/errors"
	"github.com/dl-alexandre/zsync/internal/ftp"
	"github.com/dl-alexandre/zsync/internal/types"
	"github.com/dl-alexandre/zsync/internal/utils"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Credential commands",
	Long:  "Manage the FTP passwords zsync uses when no --password is given",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a password for a user and host",
	Long: `Prompt for the password of user@host, check it against the FTP server and
store it in the system keyring (or an encrypted file when no keyring is available).`,
	Args: cobra.NoArgs,
	RunE: runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove a stored password",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored credentials",
	Long:  "List the user@host profiles that have a stored password and the storage backend in use",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

var (
	authHostname string
	authUsername string
	authPassword string
	authNoVerify bool
)

func init() {
	for _, cmd := range []*cobra.Command{authLoginCmd, authLogoutCmd} {
		cmd.Flags().StringVarP(&authHostname, "hostname", "s", "", "z/OS FTP host (default from config or localhost)")
		cmd.Flags().StringVarP(&authUsername, "username", "u", "", "TSO user (default from config or current OS user)")
	}
	authLoginCmd.Flags().StringVarP(&authPassword, "password", "p", "", "Password (prompted when omitted)")
	authLoginCmd.Flags().BoolVar(&authNoVerify, "no-verify", false, "Store the password without logging in first")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

// authTarget resolves the user and host a credential command acts on.
func authTarget() (string, string) {
	host := authHostname
	if host == "" {
		host = appConfig.Hostname
	}
	if host == "" {
		host = utils.DefaultHostname
	}
	name := authUsername
	if name == "" {
		name = appConfig.Username
	}
	if name == "" {
		if u, err := user.Current(); err == nil {
			name = u.Username
		}
	}
	return name, host
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	name, host := authTarget()
	if name == "" {
		return out.WriteError("auth.login", utils.NewCLIError(utils.ErrCodeInvalidArgument,
			"cannot determine the user name, pass --username").Build())
	}

	password := authPassword
	if password == "" {
		if !auth.IsInteractive() {
			return out.WriteError("auth.login", utils.NewCLIError(utils.ErrCodeAuthRequired,
				"no terminal to prompt on, pass --password").Build())
		}
		var err error
		password, err = auth.PromptPassword(name, host)
		if err != nil {
			return out.WriteError("auth.login", utils.NewCLIError(utils.ErrCodeAuthRequired, err.Error()).Build())
		}
	}

	if !authNoVerify {
		if err := verifyLogin(cmd.Context(), name, host, password); err != nil {
			return out.WriteError("auth.login", zerrors.Classify(err))
		}
	}

	mgr := auth.NewManager(getConfigDir())
	if warning := mgr.GetStorageWarning(); warning != "" {
		out.AddWarning("STORAGE_FALLBACK", warning, "warning")
	}
	if err := mgr.SavePassword(name, host, password); err != nil {
		return out.WriteError("auth.login", utils.NewCLIError(utils.ErrCodeUnknown,
			fmt.Sprintf("failed to store password: %v", err)).Build())
	}

	out.Log("Password stored for %s", auth.Profile(name, host))
	return out.WriteSuccess("auth.login", map[string]interface{}{
		"profile":        auth.Profile(name, host),
		"verified":       !authNoVerify,
		"storageBackend": mgr.GetStorageBackend(),
	})
}

// verifyLogin opens a throwaway session to check the password.
func verifyLogin(ctx context.Context, name, host, password string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	client := ftp.NewClient(ftp.Options{
		CommandTimeout: appConfig.GetTimeout(),
		Logger:         logger,
		Trace:          GetGlobalFlags().Debug,
	})
	if err := client.Connect(ctx, host); err != nil {
		return &zerrors.ConnectionError{Host: host, Err: err}
	}
	defer func() { _ = client.Logout(context.WithoutCancel(ctx)) }()

	if err := client.Login(ctx, name, password); err != nil {
		return &zerrors.AuthError{
			Host:   host,
			User:   name,
			Detail: strings.TrimSpace(client.LastError()),
			Err:    err,
		}
	}
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	name, host := authTarget()
	mgr := auth.NewManager(getConfigDir())
	if err := mgr.DeletePassword(name, host); err != nil {
		return out.WriteError("auth.logout", utils.NewCLIError(utils.ErrCodeAuthRequired,
			fmt.Sprintf("No password stored for '%s': %v", auth.Profile(name, host), err)).Build())
	}

	out.Log("Password removed for %s", auth.Profile(name, host))
	return out.WriteSuccess("auth.logout", map[string]interface{}{
		"profile": auth.Profile(name, host),
		"status":  "logged_out",
	})
}

type authStatusResult struct {
	Profiles       []string `json:"profiles"`
	StorageBackend string   `json:"storageBackend"`
}

func (r authStatusResult) AsTableRenderer() types.TableRenderer {
	return &profileTable{profiles: r.Profiles, backend: r.StorageBackend}
}

type profileTable struct {
	profiles []string
	backend  string
}

func (t *profileTable) Headers() []string {
	return []string{"Profile", "Storage"}
}

func (t *profileTable) Rows() [][]string {
	rows := make([][]string, 0, len(t.profiles))
	for _, p := range t.profiles {
		rows = append(rows, []string{p, t.backend})
	}
	return rows
}

func (t *profileTable) EmptyMessage() string {
	return "No stored passwords"
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	mgr := auth.NewManager(getConfigDir())
	if warning := mgr.GetStorageWarning(); warning != "" && flags.Verbose {
		out.Log("%s", warning)
	}

	profiles, err := mgr.ListProfiles()
	if err != nil {
		return out.WriteError("auth.status", utils.NewCLIError(utils.ErrCodeUnknown,
			fmt.Sprintf("failed to list profiles: %v", err)).Build())
	}
	if profiles == nil {
		profiles = []string{}
	}

	return out.WriteSuccess("auth.status", authStatusResult{
		Profiles:       profiles,
		StorageBackend: mgr.GetStorageBackend(),
	})
}
