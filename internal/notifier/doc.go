// Package notifier is the notification dispatch boundary. It takes the
// matched (event, NGO) pairs produced by the matcher and delivers them
// through pluggable senders, reporting an explicit acknowledgment back to
// the correlator once at least one channel accepted the notification. A
// dispatch where nothing was accepted is abandoned instead, so the event's
// staleness clock keeps running.
//
// # Deduplication
//
// Track (event id, NGO id) pairs. Suppress duplicates within the configured
// window so a re-matched event does not re-alert the same organization.
//
// # Rate limiting
//
// Notifications are rate limited per region (token bucket) so one noisy
// incident cannot starve alerting for the rest of the map.
package notifier
