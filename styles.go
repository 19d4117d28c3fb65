package animago

var styleProfiles = map[Style]StyleProfile{
	StyleSmooth: {
		Suffix:         "smooth gentle motion, fluid natural movement",
		MotionStrength: 100,
	},
	StyleDynamic: {
		Suffix:         "dynamic energetic motion, dramatic movement",
		MotionStrength: 180,
	},
	StyleCinematic: {
		Suffix:         "cinematic camera movement, film-like quality",
		MotionStrength: 120,
	},
}

// Styles returns every recognized style in a stable order
func Styles() []Style {
	return []Style{StyleSmooth, StyleDynamic, StyleCinematic}
}

// Profile returns the profile of a style and whether the style is recognized
func Profile(style Style) (StyleProfile, bool) {
	p, ok := styleProfiles[style]
	return p, ok
}
