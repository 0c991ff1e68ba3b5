package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client.
var UserAgent = "Contact-Events/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "Contact Events"
	AppID             = "com.github.tartampluch.go-contact-events"
	KeyringService    = "com.github.tartampluch.go-contact-events"
	LocalhostBindAddr = "127.0.0.1"
	LogFileName       = "app.log"
	ConfigFileName    = "config.yaml"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
	ExitCodeDenied  = 2
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	// Used for sensitive files like logs and the configuration file.
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagVersion      = "version"
	FlagDebug        = "debug"
	FlagConfig       = "config"
	FlagStart        = "start"
	FlagEnd          = "end"
	FlagFormat       = "format"
	FlagServe        = "serve"
	FlagRevoke       = "revoke"
	FlagDescVersion  = "Show application version and exit"
	FlagDescDebug    = "Enable debug logging to stdout"
	FlagDescConfig   = "Path to the YAML configuration file"
	FlagDescStart    = "First day of the range (YYYY-MM-DD), defaults to today"
	FlagDescEnd      = "Last day of the range (YYYY-MM-DD), defaults to start + window"
	FlagDescFormat   = "Output format: text, json, ics (range) or feed (recurring iCalendar)"
	FlagDescServe    = "Serve the calendar feed over HTTP instead of printing"
	FlagDescRevoke   = "Forget the stored contacts access decision and exit"
	MsgVersionOutput = "%s version %s (%s/%s)\n"

	FormatText = "text"
	FormatJSON = "json"
	FormatICS  = "ics"
	FormatFeed = "feed"

	// FormatTextLine expects the date and the event title.
	FormatTextLine = "%s  %s\n"
)

// -----------------------------------------------------------------------------
// Contact Date Labels & Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	// Well-known labels. Anything else coming from a store is a custom label.
	LabelBirthday    = "Birthday"
	LabelAnniversary = "Anniversary"
	LabelOther       = "Other"

	TKeyLabelBirthday    = "label_birthday"
	TKeyLabelAnniversary = "label_anniversary"
	TKeyLabelOther       = "label_other"
	TKeyEvtTitle         = "event_title"     // Requires Name, Label
	TKeyEvtTitleAge      = "event_title_age" // Requires Name, Label, Years
	TKeyPromptAccess     = "prompt_access"   // Requires Source
	TKeyDigestToday      = "digest_today"    // Requires Count
)

// SupportedLanguages defines the list of available languages (ISO 639-1).
var SupportedLanguages = []string{"en", "fr"}

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	SourceModeWeb     = "web"
	SourceModeLocal   = "local"
	DefaultLanguage   = "en"
	DefaultLeapYear   = 2000 // Leap year used to anchor year-less dates like --02-29
	DefaultListenAddr = LocalhostBindAddr + ":18080"
	DefaultWindowDays = 31
	DefaultDigestCron = "0 8 * * *"
	UIDSalt           = "go-contact-events-v1-" // Salt for deterministic UID generation
	AppleOmitYearMin  = 1604                    // Apple Contacts placeholder year
)

// Access decisions persisted in the keyring.
const (
	AccessValueGranted = "granted"
	AccessValueDenied  = "denied"
	AccessKeyPrefix    = "access:"
)

// -----------------------------------------------------------------------------
// Standards: iCalendar & vCard
// -----------------------------------------------------------------------------

const (
	// iCal Properties
	ICalVersion = "2.0"
	ICalProdid  = "-//Contact Events//Engine//EN"
	ICalCalName = "Contact Dates"
	ICalMethod  = "PUBLISH"
	ICalScale   = "GREGORIAN"
	ICalDomain  = "contactevents"

	PropXWRCalName = "X-WR-CALNAME"
	PropRefresh    = "REFRESH-INTERVAL"

	// vCard fields not covered by go-vcard constants (Apple grouped dates).
	VCardABDate   = "X-ABDATE"
	VCardABLabel  = "X-ABLABEL"
	VCardOmitYear = "X-APPLE-OMIT-YEAR"

	// Apple label markers, e.g. "_$!<Anniversary>!$_".
	ABLabelPrefix      = "_$!<"
	ABLabelSuffix      = ">!$_"
	ABLabelAnniversary = "Anniversary"

	DefaultICalRefresh = 1 * time.Hour
)

// -----------------------------------------------------------------------------
// Data Formats, Limits & File Extensions
// -----------------------------------------------------------------------------

const (
	// Date layouts used for parsing vCard date fields
	DateFormatFullDash  = "2006-01-02"
	DateFormatFullBasic = "20060102"
	DateFormatRFC3339   = time.RFC3339
	DateFormatFullT     = "2006-01-02T15:04:05Z"
	DateFormatNoYearD   = "--01-02"
	DateFormatNoYearB   = "--0102"

	// UID Generation
	UIDHashLength   = 16
	FormatHashInput = "%s|%s|%s"
	FormatUID       = "%s-%s@%s"

	// File Extensions
	ExtVCF = ".vcf"
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout         = 30 * time.Second
	ShutdownTimeout     = 5 * time.Second
	ServerReadTimeout   = 10 * time.Second
	ServerWriteTimeout  = 30 * time.Second
	ServerIdleTimeout   = 60 * time.Second
	AllowedMethods      = "GET, HEAD"
	MaxHTTPResponseSize = 256 * 1024 * 1024 // 256MB
	SchemeHTTP          = "http"
	SchemeHTTPS         = "https"
	RouteICS            = "/calendar.ics"
	RouteJSON           = "/events.json"
	QueryStart          = "start"
	QueryEnd            = "end"
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType  = "Content-Type"
	HeaderCacheControl = "Cache-Control"
	HeaderETag         = "ETag"
	HeaderAllow        = "Allow"
	HeaderXContentType = "X-Content-Type-Options"
	HeaderUserAgent    = "User-Agent"
	HeaderIfNoneMatch  = "If-None-Match"

	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeJSON            = "application/json; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrLocalPathEmpty = "configuration error: local path is empty"
	ErrWebURLEmpty    = "configuration error: web URL is empty"
	ErrFetcherMissing = "internal error: network fetcher is not initialized"
	ErrModeUnsupport  = "configuration error: unsupported source mode"
	ErrConfigPath     = "configuration error: config path is empty"
	ErrConfigNil      = "configuration error: config is nil"
	ErrConfigRead     = "failed to read configuration"
	ErrConfigParse    = "failed to parse configuration"
	ErrConfigWrite    = "failed to write configuration"
	ErrServerStartup  = "server startup failed"
	ErrServerShutdown = "server shutdown failed"
	ErrListenRequired = "server listen address is required"
	ErrInvalidURL     = "invalid URL structure"
	ErrProtocol       = "unsupported protocol scheme (http/https only)"
	ErrVCardSource    = "failed to open vCard source"
	ErrICalEncode     = "failed to encode iCalendar data"
	ErrDateParse      = "unable to parse date"
	ErrDateRange      = "invalid date range"
	ErrAccessDenied   = "contacts access not granted"
	ErrAccessPersist  = "failed to persist access decision"
	ErrPrompt         = "access prompt failed"
	ErrStoreRead      = "contact store read failed"
	ErrLogFile        = "failed to open log file"
	ErrCacheDir       = "could not determine user cache dir"
	ErrCreateDir      = "could not create app cache dir"
	ErrAppFailed      = "application failed unexpectedly"
	ErrFormat         = "unsupported output format"
	ErrWriteResp      = "failed to write response body"
	ErrLocalesAccess  = "failed to access embedded locales"
	ErrLocaleLoad     = "failed to load locale file"
	ErrCronSchedule   = "invalid digest schedule"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgMethodNotAll = "Method Not Allowed"
	HTTPMsgInternalErr  = "Internal Server Error"
	HTTPMsgBadRange     = "Bad Request: start and end must be YYYY-MM-DD with start <= end"
	HTTPMsgNoAccess     = "Contacts access has not been granted"
)

// -----------------------------------------------------------------------------
// Fallbacks & Log Messages
// -----------------------------------------------------------------------------

const (
	FallbackTitle    = "%s — %s"
	FallbackTitleAge = "%s — %s (%d)"
	FallbackName     = "Unknown"
	FallbackPrompt   = "Allow %s to read contacts from %s? [y/N] "
	FallbackDigest   = "%d contact event(s) today"

	// StubVCalendar is the minimal valid iCalendar object used when no events are found.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"

	MsgQueryStarted   = "Contact events query started"
	MsgQueryDone      = "Contact events query finished"
	MsgQueryNoAccess  = "Contact events requested without access"
	MsgInvertedRange  = "Range start is after end, returning no events"
	MsgAccessPrompt   = "Prompting for contacts access"
	MsgAccessResult   = "Contacts access decided"
	MsgAccessKnown    = "Contacts access already determined"
	MsgSkippedCard    = "Skipping malformed vCard"
	MsgSkippedDate    = "Skipping invalid date format"
	MsgSkippedDay     = "Skipping labeled date with invalid month/day"
	MsgStoreLoaded    = "Contact store loaded"
	MsgAppStarting    = "Starting application"
	MsgAppStop        = "Application stopped gracefully"
	MsgServerListen   = "HTTP server listening"
	MsgServerStop     = "Shutting down HTTP server..."
	MsgFeedServed     = "Calendar feed served"
	MsgLocaleSkip     = "Skipping non-locale file"
	MsgLocaleBadName  = "Skipping malformed locale filename"
	MsgLocaleLoaded   = "Locale loaded successfully"
	MsgTransMissing   = "Missing translation key"
	MsgPassFail       = "Password retrieval failed (might be empty)"
	MsgLogWarning     = "Warning: %s at %s: %v\n"
	MsgDigest         = "Contact events today"
	MsgDigestSchedule = "Digest scheduled"
	MsgConfigCreated  = "Default configuration written"
	MsgVCardDownload  = "vCards downloading"
	MsgAccessRevoked  = "Contacts access decision forgotten"
	MsgCtxCancel      = "Context cancelled, stopping"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyAddr      = "addr"
	LogKeySource    = "source"
	LogKeyUser      = "user"
	LogKeyTotal     = "total_cards"
	LogKeyFound     = "dates_found"
	LogKeySkipped   = "dates_skipped"
	LogKeyDays      = "days"
	LogKeyEvents    = "events"
	LogKeyStart     = "start"
	LogKeyEnd       = "end"
	LogKeyGranted   = "granted"
	LogKeyAccess    = "access"
	LogKeyValue     = "value"
	LogKeyLabel     = "label"
	LogKeyContact   = "contact"
	LogKeyStats     = "stats"
	LogKeyCount     = "count"
	LogKeyName      = "name"
	LogKeySchedule  = "schedule"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyDuration  = "duration_ms"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyCommit  = "commit"
	LogKeyDate    = "build_date"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompEngine  = "engine"
	CompGate    = "access_gate"
	CompStore   = "vcard_store"
	CompFetcher = "fetcher"
	CompServer  = "server"
	CompICS     = "ics"
	CompMain    = "main"
	CompI18n    = "i18n"
	CompConfig  = "config"
	CompDigest  = "digest"
)
