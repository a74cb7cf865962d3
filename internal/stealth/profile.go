package stealth

import "github.com/google/uuid"

// InjectionMask selects which overrides the Stealth Engine installs.
type InjectionMask struct {
	InjectNavigator bool
	InjectScreen    bool
	InjectWebGL     bool
	InjectCanvas    bool
	InjectAudio     bool
}

// AllInjections is the mask with every flag set.
func AllInjections() InjectionMask {
	return InjectionMask{true, true, true, true, true}
}

// Profile is a named fingerprint plus injection flags.
type Profile struct {
	ID          uuid.UUID
	Type        Platform
	Fingerprint Fingerprint
	Mask        InjectionMask
}

// NewProfile builds a Profile around a freshly generated Fingerprint.
func NewProfile(platform Platform, mask InjectionMask) Profile {
	return Profile{
		ID:          uuid.New(),
		Type:        platform,
		Fingerprint: Generate(platform),
		Mask:        mask,
	}
}
