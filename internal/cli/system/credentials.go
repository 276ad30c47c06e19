package system

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/shiftcal/internal/cli"
	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/keyring"
	"github.com/julianstephens/shiftcal/internal/storage/postgres"
)

// Credential names a secret kept in the OS keyring.
const (
	CredentialPostgres = "postgres"
	CredentialCalDAV   = "caldav"
)

// CredentialsSetCmd stores a secret in the OS keyring.
type CredentialsSetCmd struct {
	Kind  string `arg:"" enum:"postgres,caldav" help:"Which secret to store: postgres or caldav."`
	Value string `arg:"" optional:"" help:"Connection string or password. Prompted for when omitted."`
}

func (cmd *CredentialsSetCmd) Run(ctx *cli.Context) error {
	value := cmd.Value
	if value == "" {
		title := "PostgreSQL connection string"
		if cmd.Kind == CredentialCalDAV {
			title = "CalDAV password"
		}
		err := huh.NewInput().
			Title(title).
			EchoMode(huh.EchoModePassword).
			Value(&value).
			WithTheme(huh.ThemeDracula()).
			Run()
		if err != nil {
			return err
		}
	}

	switch cmd.Kind {
	case CredentialPostgres:
		return setConnectionString(value)
	case CredentialCalDAV:
		if err := keyring.SetCalDAVPassword(value); err != nil {
			return err
		}
		fmt.Println("✓ CalDAV password stored successfully in OS keyring")
	}
	return nil
}

func setConnectionString(connStr string) error {
	if !strings.HasPrefix(connStr, "postgres://") &&
		!strings.HasPrefix(connStr, "postgresql://") &&
		!strings.Contains(connStr, "host=") {
		return errors.New("connection string must be a valid PostgreSQL connection string")
	}

	if _, err := postgres.ValidateConnString(connStr); err != nil {
		if !errors.Is(err, postgres.ErrEmbeddedCredentials) {
			return fmt.Errorf("invalid connection string: %w", err)
		}
		fmt.Println("⚠️  Warning: Connection string contains embedded credentials.")
		fmt.Println("   It will be stored as-is in the encrypted OS keyring.")
	}

	if err := keyring.SetConnectionString(connStr); err != nil {
		return fmt.Errorf("failed to store connection string in keyring: %w", err)
	}
	fmt.Println("✓ Connection string stored successfully in OS keyring")
	fmt.Println("  Leave storage.postgres empty in the config file to use it")
	return nil
}

// CredentialsGetCmd prints a stored secret with any password masked.
type CredentialsGetCmd struct {
	Kind string `arg:"" enum:"postgres,caldav" help:"Which secret to show: postgres or caldav."`
}

func (cmd *CredentialsGetCmd) Run(ctx *cli.Context) error {
	if cmd.Kind == CredentialCalDAV {
		if _, err := keyring.GetCalDAVPassword(); err != nil {
			return notFound(err, cmd.Kind)
		}
		fmt.Println("CalDAV password: ****")
		return nil
	}

	connStr, err := keyring.GetConnectionString()
	if err != nil {
		return notFound(err, cmd.Kind)
	}
	fmt.Println("Connection string retrieved from keyring:")
	fmt.Println(maskPassword(connStr))
	return nil
}

// CredentialsDeleteCmd removes a secret from the OS keyring.
type CredentialsDeleteCmd struct {
	Kind string `arg:"" enum:"postgres,caldav" help:"Which secret to delete: postgres or caldav."`
}

func (cmd *CredentialsDeleteCmd) Run(ctx *cli.Context) error {
	var err error
	if cmd.Kind == CredentialCalDAV {
		err = keyring.DeleteCalDAVPassword()
	} else {
		err = keyring.DeleteConnectionString()
	}
	if err != nil {
		return notFound(err, cmd.Kind)
	}
	fmt.Printf("✓ %s credentials deleted from OS keyring\n", cmd.Kind)
	return nil
}

// CredentialsStatusCmd checks the availability of the OS keyring.
type CredentialsStatusCmd struct{}

func (cmd *CredentialsStatusCmd) Run(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		fmt.Println("❌ OS keyring is not available on this system")
		return errors.New("keyring unavailable")
	}
	fmt.Println("✓ OS keyring is available")

	report := func(label string, err error) {
		switch {
		case err == nil:
			fmt.Printf("✓ %s is stored in keyring\n", label)
		case errors.Is(err, keyring.ErrNotFound):
			fmt.Printf("ℹ No %s stored in keyring\n", label)
		default:
			fmt.Printf("❌ %s: %v\n", label, err)
		}
	}
	_, err := keyring.GetConnectionString()
	report("PostgreSQL connection string", err)
	_, err = keyring.GetCalDAVPassword()
	report("CalDAV password", err)
	return nil
}

func notFound(err error, kind string) error {
	if errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("no %s credentials found in keyring. Use '%s credentials set %s' to store them", kind, constants.AppName, kind)
	}
	return err
}

// maskPassword masks passwords in connection strings for display.
func maskPassword(connStr string) string {
	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		if idx := strings.Index(connStr, "://"); idx != -1 {
			remaining := connStr[idx+3:]
			if atIdx := strings.LastIndex(remaining, "@"); atIdx != -1 {
				userInfo := remaining[:atIdx]
				if colonIdx := strings.Index(userInfo, ":"); colonIdx != -1 {
					return connStr[:idx+3] + userInfo[:colonIdx] + ":****" + connStr[idx+3+atIdx:]
				}
			}
		}
	}

	if strings.Contains(connStr, "password=") {
		parts := strings.Fields(connStr)
		for i, part := range parts {
			if strings.HasPrefix(part, "password=") {
				parts[i] = "password=****"
			}
		}
		return strings.Join(parts, " ")
	}
	return connStr
}
