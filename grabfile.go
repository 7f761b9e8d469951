// Package grabfile automates extraction of a downloadable file from
// uncooperative file-hosting pages. It navigates to a page, waits out
// countdowns and other readiness barriers, bruteforces a prioritized table
// of trigger locators, captures the resulting download through whichever
// channel the page uses, and hands resolvable remote URLs to a monitored
// transfer delegate.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., rod/, sqlite/, goquery/) or after
// the job they orchestrate (grab/, transfer/).
package grabfile
