package constants

import "time"

// ViewMode is the calendar window granularity.
type ViewMode string

// Scope is the granularity of a recurring-series modification.
type Scope string

// Frequency is the unit of a recurrence rule.
type Frequency string

// EndKind is the termination rule of a recurrence.
type EndKind string

// MonthlyMode selects how monthly recurrences pick their day.
type MonthlyMode string

// AccountType identifies whose calendar is being viewed.
type AccountType string

const (
	AppName            = "shiftcal"
	Version            = "v0.1.0"
	DefaultKeyringUser = "database-connection"
	CalDAVKeyringUser  = "caldav-password"
	DefaultConfigDir   = "~/.config/shiftcal"
	ConfigFileName     = "config.yaml"
	DefaultDBFileName  = "shiftcal.db"
	CacheDirName       = "cache"
	LockFileName       = "sync.lock"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// DateTimeFormat is used for CLI input and listing output
	DateTimeFormat = "2006-01-02 15:04"

	ViewDay  ViewMode = "day"
	ViewWeek ViewMode = "week"

	ScopeSingle Scope = "single"
	ScopeFuture Scope = "future"
	ScopeAll    Scope = "all"
	ScopeCancel Scope = "cancel"

	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyCustom  Frequency = "custom"

	EndAfter  EndKind = "after"
	EndOnDate EndKind = "on_date"
	EndNever  EndKind = "never"

	MonthlyByDay     MonthlyMode = "day"
	MonthlyByWeekday MonthlyMode = "weekday"

	AccountEmployee AccountType = "employee"
	AccountManager  AccountType = "manager"
)

// Grid geometry and gesture tuning.
const (
	PixelsPerHour     = 60.0
	MinEventHeightPx  = 15.0
	SnapMinutes       = 15
	DragThresholdPx   = 5.0
	AutoScrollEdgePx  = 50.0
	MaxScrollOffset   = 7
	DaysInWeek        = 7
	DefaultEventHours = 1
)

// AutoScrollInterval is the delay between auto-scroll nudges while dragging near an edge.
const AutoScrollInterval = 500 * time.Millisecond

// Recurrence safety caps.
const (
	MaxOccurrences  = 200
	MaxHorizonYears = 2
)

// DefaultHistoryLimit bounds the undo stack.
const DefaultHistoryLimit = 100

// DefaultMaxDailyHours is the per-employee scheduling limit used by validation.
const DefaultMaxDailyHours = 12.0

// DefaultSyncSpec is the cron expression used for background refresh.
const DefaultSyncSpec = "@every 5m"
