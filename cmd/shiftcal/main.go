package main

import (
	"github.com/alecthomas/kong"

	"github.com/julianstephens/shiftcal/internal/cli"
	"github.com/julianstephens/shiftcal/internal/cli/calendar"
	"github.com/julianstephens/shiftcal/internal/cli/shifts"
	"github.com/julianstephens/shiftcal/internal/cli/system"
	"github.com/julianstephens/shiftcal/internal/constants"
	apperrors "github.com/julianstephens/shiftcal/internal/errors"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path." type:"path" default:"${config}"`
	Debug   bool   `help:"Enable debug logging."`

	Init     system.InitCmd     `cmd:"" help:"Initialize shiftcal storage."`
	Migrate  system.MigrateCmd  `cmd:"" help:"Run database migrations."`
	Doctor   system.DoctorCmd   `cmd:"" help:"Run health checks and diagnostics."`
	Tui      system.TuiCmd      `cmd:"" help:"Launch the interactive calendar." default:"1"`
	Sync     system.SyncCmd     `cmd:"" help:"Retry unsaved changes and refresh the local snapshot."`
	Validate system.ValidateCmd `cmd:"" help:"Check shifts for scheduling conflicts."`
	Backup   struct {
		Create  system.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    system.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore system.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage sqlite database backups."`
	Shift struct {
		List   shifts.ShiftListCmd   `cmd:"" help:"List shifts." default:"1"`
		Add    shifts.ShiftAddCmd    `cmd:"" help:"Add a shift or a recurring series."`
		Edit   shifts.ShiftEditCmd   `cmd:"" help:"Edit shift details."`
		Move   shifts.ShiftMoveCmd   `cmd:"" help:"Move a shift to a new start."`
		Resize shifts.ShiftResizeCmd `cmd:"" help:"Change a shift's start or end."`
		Delete shifts.ShiftDeleteCmd `cmd:"" help:"Delete a shift."`
	} `cmd:"" help:"Manage shifts."`
	Calendar struct {
		Export calendar.ExportCmd `cmd:"" help:"Export shifts as iCalendar."`
		Import calendar.ImportCmd `cmd:"" help:"Import shifts from an iCalendar file."`
	} `cmd:"" help:"Exchange shifts with other calendars."`
	Credentials struct {
		Set    system.CredentialsSetCmd    `cmd:"" help:"Store a secret in the OS keyring."`
		Get    system.CredentialsGetCmd    `cmd:"" help:"Show a stored secret with passwords masked."`
		Delete system.CredentialsDeleteCmd `cmd:"" help:"Remove a secret from the OS keyring."`
		Status system.CredentialsStatusCmd `cmd:"" help:"Check OS keyring availability." default:"1"`
	} `cmd:"" help:"Manage storage credentials in the OS keyring."`
	ConfigCmd struct {
		Show system.ConfigShowCmd `cmd:"" help:"Print the effective configuration." default:"1"`
	} `cmd:"" name:"config" help:"Inspect configuration."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Staff shift scheduling calendar"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": constants.Version,
			"config":  constants.DefaultConfigDir + "/" + constants.ConfigFileName,
		},
	)

	// The TUI owns the terminal, so debug logs only go to the file.
	quiet := ctx.Command() == "tui"
	appCtx, err := cli.NewContext(CLI.Config, CLI.Debug, quiet)
	if err != nil {
		apperrors.Fatal(err)
	}
	apperrors.Fatal(ctx.Run(appCtx))
}
