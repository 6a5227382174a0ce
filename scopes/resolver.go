// Package scopes maps OAuth scope strings granted by a provider to the logical
// services the CRM stores credentials for. One grant can cover several services.
package scopes

import (
	"sort"
	"strings"
)

// ServiceID names one authorized capability bundle, e.g. "google-analytics".
type ServiceID string

const (
	GoogleAnalytics     ServiceID = "google-analytics"
	GoogleCalendar      ServiceID = "google-calendar"
	GoogleGmail         ServiceID = "google-gmail"
	GoogleSearchConsole ServiceID = "google-searchconsole"
	GoogleDrive         ServiceID = "google-drive"
	GoogleSheets        ServiceID = "google-sheets"
	GoogleBusiness      ServiceID = "google-business"
	GoogleYouTube       ServiceID = "google-youtube"
	Facebook            ServiceID = "facebook"
	Instagram           ServiceID = "instagram"
	Threads             ServiceID = "threads"
	TikTok              ServiceID = "tiktok"
	Fortnox             ServiceID = "fortnox"
)

const googleScopePrefix = "https://www.googleapis.com/auth/"

var scopeToService = map[string]ServiceID{
	googleScopePrefix + "analytics":          GoogleAnalytics,
	googleScopePrefix + "analytics.readonly": GoogleAnalytics,

	googleScopePrefix + "calendar":                   GoogleCalendar,
	googleScopePrefix + "calendar.readonly":          GoogleCalendar,
	googleScopePrefix + "calendar.events":            GoogleCalendar,
	googleScopePrefix + "calendar.events.readonly":   GoogleCalendar,
	googleScopePrefix + "calendar.settings.readonly": GoogleCalendar,

	// Only the broad mail scope. See ignoredScopes.
	"https://mail.google.com/": GoogleGmail,

	googleScopePrefix + "webmasters":          GoogleSearchConsole,
	googleScopePrefix + "webmasters.readonly": GoogleSearchConsole,

	googleScopePrefix + "drive.file":       GoogleDrive,
	googleScopePrefix + "spreadsheets":     GoogleSheets,
	googleScopePrefix + "business.manage":  GoogleBusiness,
	googleScopePrefix + "youtube.readonly": GoogleYouTube,
	googleScopePrefix + "youtube.upload":   GoogleYouTube,

	"pages_show_list":       Facebook,
	"pages_read_engagement": Facebook,
	"pages_manage_posts":    Facebook,

	"instagram_basic":           Instagram,
	"instagram_content_publish": Instagram,

	"threads_basic":           Threads,
	"threads_content_publish": Threads,

	"user.info.basic": TikTok,
	"video.upload":    TikTok,
	"video.publish":   TikTok,

	"companyinformation": Fortnox,
	"invoice":            Fortnox,
	"customer":           Fortnox,
	"article":            Fortnox,
	"project":            Fortnox,
	"bookkeeping":        Fortnox,
}

// Narrow Gmail scopes never name a service. Requesting them makes Google escalate
// the consent screen, and Google may add gmail.metadata to a grant unasked.
var ignoredScopes = map[string]struct{}{
	googleScopePrefix + "gmail.metadata": {},
	googleScopePrefix + "gmail.readonly": {},
	googleScopePrefix + "gmail.modify":   {},
	googleScopePrefix + "gmail.send":     {},
	googleScopePrefix + "gmail.labels":   {},
}

// serviceScopes is the reverse of scopeToService: the scopes requested when a user
// asks to connect a service. The first entry is the one requested.
var serviceScopes = map[ServiceID][]string{
	GoogleAnalytics:     {googleScopePrefix + "analytics.readonly"},
	GoogleCalendar:      {googleScopePrefix + "calendar"},
	GoogleGmail:         {"https://mail.google.com/"},
	GoogleSearchConsole: {googleScopePrefix + "webmasters.readonly"},
	GoogleDrive:         {googleScopePrefix + "drive.file"},
	GoogleSheets:        {googleScopePrefix + "spreadsheets"},
	GoogleBusiness:      {googleScopePrefix + "business.manage"},
	GoogleYouTube:       {googleScopePrefix + "youtube.readonly", googleScopePrefix + "youtube.upload"},
	Facebook:            {"pages_show_list", "pages_read_engagement", "pages_manage_posts"},
	Instagram:           {"instagram_basic", "instagram_content_publish"},
	Threads:             {"threads_basic", "threads_content_publish"},
	TikTok:              {"user.info.basic", "video.upload", "video.publish"},
	Fortnox:             {"companyinformation", "invoice", "customer", "article", "project", "bookkeeping"},
}

// Resolve returns the service a single scope grants. Unknown and ignored scopes
// return false.
func Resolve(scope string) (ServiceID, bool) {
	scope = strings.TrimSpace(scope)
	if _, ignored := ignoredScopes[scope]; ignored {
		return "", false
	}
	service, ok := scopeToService[scope]
	return service, ok
}

// ResolveAll resolves every granted scope and returns the distinct services, sorted.
func ResolveAll(granted []string) []ServiceID {
	seen := make(map[ServiceID]struct{})
	for _, scope := range granted {
		if service, ok := Resolve(scope); ok {
			seen[service] = struct{}{}
		}
	}
	services := make([]ServiceID, 0, len(seen))
	for s := range seen {
		services = append(services, s)
	}
	sort.Slice(services, func(i, j int) bool { return services[i] < services[j] })
	return services
}

// Split breaks a provider scope string into individual scopes. Google separates
// with spaces, Meta and TikTok with commas.
func Split(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t' || r == '\n'
	})
}

// ScopesFor returns the scopes to request for the given services, deduplicated and
// in first-seen order. Unknown services contribute nothing.
func ScopesFor(services ...ServiceID) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, service := range services {
		for _, scope := range serviceScopes[service] {
			if _, dup := seen[scope]; dup {
				continue
			}
			seen[scope] = struct{}{}
			out = append(out, scope)
		}
	}
	return out
}

// Known reports whether service is one the resolver can produce.
func Known(service ServiceID) bool {
	_, ok := serviceScopes[service]
	return ok
}

// Strings converts services to plain strings.
func Strings(services []ServiceID) []string {
	out := make([]string, len(services))
	for i, s := range services {
		out[i] = string(s)
	}
	return out
}
