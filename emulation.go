package mimic

import (
	"github.com/bogdanfinn/tls-client/profiles"
)

// Emulation names a browser network fingerprint. The value doubles as the
// canonical cache-key label, so two Emulation values compare equal exactly
// when they select the same fingerprint.
type Emulation string

// Supported emulation profiles.
const (
	EmulationChrome110        Emulation = "chrome_110"
	EmulationChrome117        Emulation = "chrome_117"
	EmulationChrome120        Emulation = "chrome_120"
	EmulationChrome124        Emulation = "chrome_124"
	EmulationFirefox117       Emulation = "firefox_117"
	EmulationFirefox123       Emulation = "firefox_123"
	EmulationSafari160        Emulation = "safari_16_0"
	EmulationSafariIOS170     Emulation = "safari_ios_17_0"
	EmulationOpera91          Emulation = "opera_91"
	EmulationOkhttp4Android13 Emulation = "okhttp4_android_13"
)

// DefaultEmulation is used when an Emulation is empty or unrecognized.
const DefaultEmulation = EmulationChrome124

var emulationProfiles = map[Emulation]profiles.ClientProfile{
	EmulationChrome110:        profiles.Chrome_110,
	EmulationChrome117:        profiles.Chrome_117,
	EmulationChrome120:        profiles.Chrome_120,
	EmulationChrome124:        profiles.Chrome_124,
	EmulationFirefox117:       profiles.Firefox_117,
	EmulationFirefox123:       profiles.Firefox_123,
	EmulationSafari160:        profiles.Safari_16_0,
	EmulationSafariIOS170:     profiles.Safari_IOS_17_0,
	EmulationOpera91:          profiles.Opera_91,
	EmulationOkhttp4Android13: profiles.Okhttp4Android13,
}

// Emulations lists every supported profile in no particular order.
func Emulations() []Emulation {
	out := make([]Emulation, 0, len(emulationProfiles))
	for e := range emulationProfiles {
		out = append(out, e)
	}
	return out
}

// Valid reports whether e names a supported profile.
func (e Emulation) Valid() bool {
	_, ok := emulationProfiles[e]
	return ok
}

// resolve returns the fingerprint profile and the canonical label used for
// cache keying. Unknown selectors degrade to DefaultEmulation; that is a
// documented fallback, not an error.
func (e Emulation) resolve() (profiles.ClientProfile, Emulation) {
	if profile, ok := emulationProfiles[e]; ok {
		return profile, e
	}
	return emulationProfiles[DefaultEmulation], DefaultEmulation
}
