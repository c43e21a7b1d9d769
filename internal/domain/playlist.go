package domain

// EntryType distinguishes playable entries from text-only tasks.
type EntryType string

const (
	EntryVideo EntryType = "video"
	EntryText  EntryType = "text"
)

// PlaylistEntry is one item of a rendered workout playlist.
// Video entries fill the clip fields; text entries fill Text and Description.
type PlaylistEntry struct {
	Type       EntryType `json:"type"`
	Week       int       `json:"week"`
	Day        int       `json:"day"`
	Block      BlockType `json:"block"`
	BlockIndex int       `json:"block_index"`

	Kind            VideoKind `json:"kind,omitempty"`
	ExerciseID      string    `json:"exercise_id,omitempty"`
	ExerciseName    string    `json:"exercise_name,omitempty"`
	Sets            int       `json:"sets,omitempty"`
	Reps            string    `json:"reps,omitempty"`
	ClipID          string    `json:"clip_id,omitempty"`
	PlaybackURL     string    `json:"playback_url,omitempty"`
	Archetype       Archetype `json:"archetype,omitempty"`
	Duration        int       `json:"duration,omitempty"` // seconds
	SubstitutedFrom string    `json:"substituted_from,omitempty"`

	Text        string `json:"text,omitempty"`
	Description string `json:"description,omitempty"`
}

// Issue is a machine-readable problem found while building a playlist.
type Issue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
