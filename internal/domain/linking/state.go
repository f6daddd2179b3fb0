// Package linking implements the settings-gated wizard that connects a
// module to an analytics profile.
//
// The current step is never stored: Classify derives it from which
// settings are present, in a fixed priority order.
package linking

// State is the current wizard step.
type State string

// machine state names; untyped so they can be handed to statekit directly.
const (
	stateCredentials   = "awaiting_credentials"
	stateAuthorization = "awaiting_authorization"
	stateSelection     = "awaiting_resource_selection"
	stateLinked        = "linked"
)

// Wizard steps in priority order.
const (
	StateAwaitingCredentials       State = stateCredentials
	StateAwaitingAuthorization     State = stateAuthorization
	StateAwaitingResourceSelection State = stateSelection
	StateLinked                    State = stateLinked
)

// Setting keys owned by the wizard.
const (
	KeyClientID        = "client_id"
	KeyClientSecret    = "client_secret"
	KeyToken           = "token"
	KeyAccountID       = "account_id"
	KeyAccountName     = "account_name"
	KeyWebPropertyID   = "web_property_id"
	KeyWebPropertyName = "web_property_name"
	KeyProfileID       = "profile_id"
	KeyProfileName     = "profile_name"
	KeyTrackingType    = "tracking_type"

	keyLegacyUniversal = "universal_analytics"
)

// Tracking types accepted once linked.
const (
	TrackingUniversal   = "universal_analytics"
	TrackingClassic     = "classic_analytics"
	TrackingDisplayAds  = "display_advertising"
	DefaultTrackingType = TrackingUniversal
)

// TrackingTypes lists the accepted tracking types.
func TrackingTypes() []string {
	return []string{TrackingUniversal, TrackingClassic, TrackingDisplayAds}
}

// SnapshotKeys are the keys read on every evaluation.
func SnapshotKeys() []string {
	return []string{
		KeyClientID, KeyClientSecret, KeyToken,
		KeyAccountID, KeyAccountName,
		KeyWebPropertyID, KeyWebPropertyName,
		KeyProfileID, KeyProfileName,
		KeyTrackingType,
	}
}

// ResetKeys are cleared by Reset.
func ResetKeys() []string {
	return []string{
		KeyClientID, KeyClientSecret, KeyToken,
		KeyAccountID, KeyAccountName,
		KeyWebPropertyID, KeyWebPropertyName,
		KeyProfileID, KeyProfileName,
		keyLegacyUniversal,
	}
}

// Snapshot is a freshly read view of the wizard settings. Missing keys
// are empty strings.
type Snapshot map[string]string

// Classify returns the first step whose required keys are missing.
func Classify(s Snapshot) State {
	switch {
	case s[KeyClientID] == "" || s[KeyClientSecret] == "":
		return StateAwaitingCredentials
	case s[KeyToken] == "":
		return StateAwaitingAuthorization
	case s[KeyProfileID] == "":
		return StateAwaitingResourceSelection
	default:
		return StateLinked
	}
}
