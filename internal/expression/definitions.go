package expression

// Definition describes how one state looks. Definitions are values built once
// at package init; Lookup hands out copies so the table is never mutated.
type Definition struct {
	State        State
	Mouth        string // SVG path data on a 100x100 face
	EyeClass     string
	CheekClass   string
	BodyClass    string
	BrowClass    string
	BodyModifier string // optional body-level class
	ArmWave      bool
}

// Mouth geometry
const (
	mouthRest     = "M 38 64 Q 50 68 62 64"
	mouthSmile    = "M 34 60 Q 50 74 66 60"
	mouthGrin     = "M 32 58 Q 50 80 68 58 Z"
	mouthO        = "M 44 62 A 6 8 0 1 0 56 62 A 6 8 0 1 0 44 62"
	mouthWavy     = "M 36 65 Q 42 61 48 65 Q 54 69 60 65"
	mouthFrown    = "M 36 68 Q 50 58 64 68"
	mouthSnarl    = "M 34 66 L 42 62 L 50 66 L 58 62 L 66 66"
	mouthSide     = "M 40 64 Q 52 66 62 60"
	mouthYawn     = "M 44 60 A 7 10 0 1 0 56 60 A 7 10 0 1 0 44 60"
	mouthPursed   = "M 46 64 Q 50 62 54 64 Q 50 66 46 64"
	mouthThinking = "M 40 65 Q 48 63 58 66"
)

// talkingMouths are the shapes the audio-driven mouth animation cycles through
var talkingMouths = []string{
	mouthRest,
	"M 40 62 Q 50 72 60 62 Q 50 66 40 62",
	"M 42 61 Q 50 76 58 61 Q 50 64 42 61",
	mouthO,
	"M 38 63 Q 50 70 62 63 Q 50 65 38 63",
}

var table = map[State]Definition{
	StateIdle: {
		State: StateIdle, Mouth: mouthRest,
		EyeClass: "eyes-open", CheekClass: "", BodyClass: "body-idle", BrowClass: "brows-rest",
	},
	StateTalking: {
		State: StateTalking, Mouth: mouthRest,
		EyeClass: "eyes-open", CheekClass: "", BodyClass: "body-talking", BrowClass: "brows-rest",
	},
	StateThinking: {
		State: StateThinking, Mouth: mouthThinking,
		EyeClass: "eyes-up", CheekClass: "", BodyClass: "body-thinking", BrowClass: "brows-raised-one",
	},
	State(Happy): {
		State: State(Happy), Mouth: mouthSmile,
		EyeClass: "eyes-happy", CheekClass: "cheeks-blush", BodyClass: "body-happy", BrowClass: "brows-raised",
	},
	State(Smiling): {
		State: State(Smiling), Mouth: mouthSmile,
		EyeClass: "eyes-soft", CheekClass: "cheeks-light", BodyClass: "body-idle", BrowClass: "brows-rest",
	},
	State(Surprised): {
		State: State(Surprised), Mouth: mouthO,
		EyeClass: "eyes-wide", CheekClass: "", BodyClass: "body-jump", BrowClass: "brows-high",
		BodyModifier: "startled",
	},
	State(Confused): {
		State: State(Confused), Mouth: mouthWavy,
		EyeClass: "eyes-uneven", CheekClass: "", BodyClass: "body-tilt", BrowClass: "brows-crooked",
	},
	State(Angry): {
		State: State(Angry), Mouth: mouthSnarl,
		EyeClass: "eyes-narrow", CheekClass: "cheeks-red", BodyClass: "body-shake", BrowClass: "brows-furrowed",
		BodyModifier: "steaming",
	},
	State(Sad): {
		State: State(Sad), Mouth: mouthFrown,
		EyeClass: "eyes-droop", CheekClass: "", BodyClass: "body-slump", BrowClass: "brows-sad",
	},
	State(Laughing): {
		State: State(Laughing), Mouth: mouthGrin,
		EyeClass: "eyes-closed-happy", CheekClass: "cheeks-blush", BodyClass: "body-bounce", BrowClass: "brows-raised",
		ArmWave: true,
	},
	State(Skeptical): {
		State: State(Skeptical), Mouth: mouthSide,
		EyeClass: "eyes-squint", CheekClass: "", BodyClass: "body-lean", BrowClass: "brows-raised-one",
	},
	State(Sleepy): {
		State: State(Sleepy), Mouth: mouthYawn,
		EyeClass: "eyes-half", CheekClass: "", BodyClass: "body-sway", BrowClass: "brows-low",
		BodyModifier: "drowsy",
	},
	State(Excited): {
		State: State(Excited), Mouth: mouthGrin,
		EyeClass: "eyes-sparkle", CheekClass: "cheeks-blush", BodyClass: "body-bounce", BrowClass: "brows-high",
		ArmWave: true,
	},
	State(Searching): {
		State: State(Searching), Mouth: mouthPursed,
		EyeClass: "eyes-scan", CheekClass: "", BodyClass: "body-searching", BrowClass: "brows-focused",
		BodyModifier: "magnifier",
	},
}

// Lookup returns the definition for a state
func Lookup(s State) (Definition, bool) {
	def, ok := table[s]
	return def, ok
}

// MustLookup returns the definition for s or the idle definition
func MustLookup(s State) Definition {
	if def, ok := table[s]; ok {
		return def
	}
	return table[StateIdle]
}

// TalkingMouth returns talking frame n, wrapping around the frame set
func TalkingMouth(n int) string {
	if n < 0 {
		n = -n
	}
	return talkingMouths[n%len(talkingMouths)]
}

// TalkingFrames is the number of distinct talking mouth frames
func TalkingFrames() int {
	return len(talkingMouths)
}

// RestMouth is the closed mouth shown between talking frames
func RestMouth() string {
	return mouthRest
}
