package chat

// Mode is how the assistant answers.
type Mode string

const (
	// ModeLive calls the configured chat model.
	ModeLive Mode = "live"
	// ModeCanned answers from keyword templates.
	ModeCanned Mode = "canned"
	// ModeUnconfigured answers every prompt with ConfigMissingMessage.
	ModeUnconfigured Mode = "unconfigured"
)

// ResolveMode picks the answering mode from the ASSISTANT_MODE setting and
// the state of the provider configuration. "offline" is always canned.
// "live" needs complete configuration. "auto" goes live when configured,
// canned when nothing at all is configured, and fails closed on partial
// configuration.
func ResolveMode(setting string, configured, partial bool) Mode {
	switch setting {
	case "offline":
		return ModeCanned
	case "live":
		if configured {
			return ModeLive
		}
		return ModeUnconfigured
	default:
		switch {
		case configured:
			return ModeLive
		case partial:
			return ModeUnconfigured
		default:
			return ModeCanned
		}
	}
}
