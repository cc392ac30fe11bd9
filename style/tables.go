package style

// Lens names with behavioural meaning beyond their bias delta.
const (
	// Surgeon requires a role on every operation that turns a step on.
	Surgeon = "Surgeon"
	// Huckaby surfaces the top three candidates instead of one.
	Huckaby = "Huckaby"
)

// Mode names.
const (
	ModeCleanFunctional = "CLEAN_FUNCTIONAL"
	ModeRawJam          = "RAW_JAM"
	ModeLateNight       = "LATE_NIGHT"
	ModePeakTime        = "PEAK_TIME"
)

var cities = normalized(map[string]Biases{
	"Detroit": {DensityBias: 0.1, TimelineBias: 0.2, AccentSharpness: 0.1, NoiseBias: 0.05},
	"Chicago": {SwingBias: 0.15, DensityBias: 0.1, GhostProbBias: 0.05},
	"Berlin":  {DensityBias: -0.05, NoiseBias: 0.15, HarshnessPenalty: -0.05, TimelineBias: 0.1},
	"London":  {SwingBias: 0.1, GhostProbBias: 0.15, AccentSharpness: 0.05},
	"Lagos":   {TimelineBias: 0.3, SwingBias: 0.1, DensityBias: 0.15},
	"Bristol": {SwingBias: 0.05, NoiseBias: 0.1, DensityBias: -0.1, GhostProbBias: 0.1},
	"NewYork": {SwingBias: 0.2, AccentSharpness: 0.1},
	"Tokyo":   {AccentSharpness: 0.15, HarshnessPenalty: 0.1, DensityBias: -0.05},
})

var influences = normalized(map[string]Biases{
	"AfroFunk":   {TimelineBias: 0.25, SwingBias: 0.1, GhostProbBias: 0.1},
	"Acid":       {NoiseBias: 0.1, AccentSharpness: 0.2, DensityBias: 0.05},
	"Dub":        {DensityBias: -0.2, GhostProbBias: 0.15, HarshnessPenalty: 0.1},
	"Electro":    {AccentSharpness: 0.15, SwingBias: -0.05, TimelineBias: 0.05},
	"BrokenBeat": {SwingBias: 0.2, GhostProbBias: 0.2, DensityBias: 0.05},
	"Minimal":    {DensityBias: -0.25, HarshnessPenalty: 0.15},
	"Jungle":     {DensityBias: 0.2, GhostProbBias: 0.1, NoiseBias: 0.05},
	"Garage":     {SwingBias: 0.25, GhostProbBias: 0.1},
})

var lenses = normalized(map[string]Biases{
	Surgeon:  {AccentSharpness: 0.2, HarshnessPenalty: 0.1, DensityBias: -0.1},
	Huckaby:  {SwingBias: 0.1, GhostProbBias: 0.1, TimelineBias: 0.1},
	"Dilla":  {SwingBias: 0.3, GhostProbBias: 0.2, AccentSharpness: -0.1},
	"Mills":  {DensityBias: 0.2, NoiseBias: 0.1, TimelineBias: 0.2},
	"Hawtin": {DensityBias: -0.3, HarshnessPenalty: 0.2},
})

var modes = normalized(map[string]Biases{
	ModeCleanFunctional: {HarshnessPenalty: 0.2, AccentSharpness: 0.05},
	ModeRawJam:          {NoiseBias: 0.2, SwingBias: 0.1, HarshnessPenalty: -0.1},
	ModeLateNight:       {DensityBias: -0.1, GhostProbBias: 0.15, SwingBias: 0.05},
	ModePeakTime:        {DensityBias: 0.2, AccentSharpness: 0.15, NoiseBias: 0.1},
})

// aliases catches spellings that carry punctuation NormalizeTag refuses.
// Values are normalised table keys.
var aliases = map[string]string{
	"NYC":                "newyork",
	"N.Y.C.":             "newyork",
	"4/4":                "minimal",
	"UK Garage (2-step)": "garage",
	"2-step/UKG":         "garage",
	"Afro/Funk":          "afrofunk",
	"Drum'n'Bass":        "jungle",
	"D&B":                "jungle",
}

func normalized(m map[string]Biases) map[string]Biases {
	out := make(map[string]Biases, len(m))
	for k, v := range m {
		out[NormalizeTag(k)] = v
	}
	return out
}
