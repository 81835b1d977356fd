package streaming

import "clearstream/models"

// TrackSelection is the outcome of picking one video and one audio stream
// from a file's descriptors. Unset indexes are reported through the Has
// flags; callers omit the corresponding map when a flag is false.
type TrackSelection struct {
	VideoIndex       int
	AudioIndex       int
	HasVideo         bool
	HasAudio         bool
	MatchedPreferred bool
}

// SelectTracks scans the descriptors once and picks the streams to expose.
// The first video stream wins. Audio prefers an exact language-tag match for
// preferredLanguage; when none matches, the first audio stream in encounter
// order is the fallback and MatchedPreferred is false. Encounter order is
// authoritative; there is no scoring beyond the exact language match.
func SelectTracks(streams []models.StreamDescriptor, preferredLanguage string) TrackSelection {
	sel := TrackSelection{}

	var audio []models.StreamDescriptor
	for _, s := range streams {
		switch s.Kind {
		case models.StreamKindVideo:
			if !sel.HasVideo {
				sel.VideoIndex = s.Index
				sel.HasVideo = true
			}
		case models.StreamKindAudio:
			audio = append(audio, s)
		}
	}

	for _, s := range audio {
		if preferredLanguage != "" && s.Language == preferredLanguage {
			sel.AudioIndex = s.Index
			sel.HasAudio = true
			sel.MatchedPreferred = true
			return sel
		}
	}

	if len(audio) > 0 {
		sel.AudioIndex = audio[0].Index
		sel.HasAudio = true
	}

	return sel
}
