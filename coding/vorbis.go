package coding

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jfreymuth/vorbis"

	"github.com/farcloser/vgmgo/streamfile"
)

// Vorbis wraps github.com/jfreymuth/vorbis for both standard Ogg Vorbis
// streams and the in-stream "setup already parsed" variants some game
// containers use (Wwise Vorbis, FSB Vorbis): the engine hands it a
// streamfile.File already positioned/clamped to the codec payload and
// Vorbis decodes it once into a PCM16 ring, serving Decode calls from that
// ring (spec.md §4.3 "Vorbis: pluggable entry point over a third-party
// decoder").
type Vorbis struct {
	channels int

	decoded  []int16 // interleaved PCM16, full decode done lazily on first use
	loopFromComment, loopToComment int64
	haveLoop bool
}

// vorbisLoopCommentPairs are two-key comment forms scanned for loop points,
// in priority order: an explicit start key matched with either an explicit
// end or a length key (spec.md §4.3's loop-comment-key list). Map keys are
// compared upper-cased, so "LoopStart"/"LOOPSTART"/"loopstart" all match
// the same entry; underscore and non-underscore spellings are still
// distinct keys and need their own entries.
var vorbisLoopCommentPairs = []struct{ start, end string }{
	{"LOOPSTART", "LOOPLENGTH"},
	{"LOOPSTART", "LOOPEND"},
	{"LOOP_START", "LOOP_END"},
	{"LOOP_BEGIN", "LOOP_END"},
	{"XIPH_CUE_LOOPSTART", "XIPH_CUE_LOOPEND"},
}

// vorbisLoopCommentCombinedKeys are single-key comment forms whose value
// packs both loop points together as "start,end" (spec.md §4.3's
// LOOP=/lp=/LOOPDEFS= forms). LOOPMS carries its pair in
// milliseconds rather than samples; this scan stores the raw value as-is
// since converting to a sample count needs the stream's rate, which isn't
// available at the comment-scan layer (see DESIGN.md).
var vorbisLoopCommentCombinedKeys = []string{"LOOP", "LP", "LOOPDEFS", "LOOPMS"}

// vorbisLoopCommentStartOnlyKeys are single-key forms that carry only a
// loop start point; the loop runs from there to the end of the decoded
// stream (spec.md §4.3's um3.stream.looppoint.start/LOOPPOINT forms).
var vorbisLoopCommentStartOnlyKeys = []string{"LOOPPOINT", "UM3.STREAM.LOOPPOINT.START"}

func NewVorbis(channels int) (*Vorbis, error) {
	return &Vorbis{channels: channels}, nil
}

func (v *Vorbis) ensureDecoded(sf streamfile.File) error {
	if v.decoded != nil {
		return nil
	}
	size := sf.Size()
	raw := make([]byte, size)
	if _, err := streamfile.ReadFull(sf, raw, 0); err != nil {
		return err
	}

	dec, err := vorbis.NewDecoder(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("coding: vorbis setup: %w", err)
	}

	var pcm []int16
	for {
		frame, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("coding: vorbis decode: %w", err)
		}
		for i := 0; i < len(frame[0]); i++ {
			for ch := 0; ch < v.channels && ch < len(frame); ch++ {
				pcm = append(pcm, clampFloatToInt16(frame[ch][i]))
			}
		}
	}
	v.decoded = pcm
	v.scanLoopComments(dec, int64(len(pcm))/int64(v.channels))
	return nil
}

// scanLoopComments tries every known loop-tag comment form in priority
// order (spec.md §4.3): two-key pairs first, then single keys carrying both
// points together, then single keys carrying only a start point (the loop
// runs to totalSamples), then the title/album suffix pairing and the
// MarkerNum/M= hex-marker pairing, which need the comments in their
// original order and can't be resolved from the upper-cased key map alone.
func (v *Vorbis) scanLoopComments(dec *vorbis.Decoder, totalSamples int64) {
	comments := dec.Comments()
	upper := make(map[string]string, len(comments))
	for _, c := range comments {
		if k, val, ok := strings.Cut(c, "="); ok {
			upper[strings.ToUpper(k)] = val
		}
	}

	for _, pair := range vorbisLoopCommentPairs {
		startStr, okStart := upper[pair.start]
		endStr, okEnd := upper[pair.end]
		if !okStart || !okEnd {
			continue
		}
		start := parseIntLenient(startStr)
		end := parseIntLenient(endStr)
		if pair.end == "LOOPLENGTH" {
			end = start + end
		}
		v.loopFromComment, v.loopToComment = start, end
		v.haveLoop = true
		return
	}

	for _, key := range vorbisLoopCommentCombinedKeys {
		val, ok := upper[key]
		if !ok {
			continue
		}
		startStr, endStr, ok := strings.Cut(val, ",")
		if !ok {
			continue
		}
		v.loopFromComment = parseIntLenient(startStr)
		v.loopToComment = parseIntLenient(endStr)
		v.haveLoop = true
		return
	}

	for _, key := range vorbisLoopCommentStartOnlyKeys {
		val, ok := upper[key]
		if !ok {
			continue
		}
		v.loopFromComment = parseIntLenient(val)
		v.loopToComment = totalSamples
		v.haveLoop = true
		return
	}

	if start, end, ok := vorbisScanTitleAlbumLoop(upper); ok {
		v.loopFromComment, v.loopToComment = start, end
		v.haveLoop = true
		return
	}

	if start, ok := vorbisScanMarkerLoop(comments); ok {
		v.loopFromComment, v.loopToComment = start, totalSamples
		v.haveLoop = true
		return
	}

	if start, ok := vorbisScanLoopTime(comments); ok {
		// loopTime is milliseconds and names a forced manual seek point
		// rather than a natural loop region; stored as-is for the same
		// reason LOOPMS is (see vorbisLoopCommentCombinedKeys).
		v.loopFromComment, v.loopToComment = start, totalSamples
		v.haveLoop = true
	}
}

// vorbisScanTitleAlbumLoop looks for the paired "title=...-lpsN"/
// "album=...-lpeN" convention, where N is the loop start/end sample number
// appended to the end of each tag's value (spec.md §4.3).
func vorbisScanTitleAlbumLoop(upper map[string]string) (start, end int64, ok bool) {
	title, okTitle := upper["TITLE"]
	album, okAlbum := upper["ALBUM"]
	if !okTitle || !okAlbum {
		return 0, 0, false
	}
	startStr, okStart := vorbisCutSuffixDigits(title, "-LPS")
	endStr, okEnd := vorbisCutSuffixDigits(album, "-LPE")
	if !okStart || !okEnd {
		return 0, 0, false
	}
	return parseIntLenient(startStr), parseIntLenient(endStr), true
}

// vorbisCutSuffixDigits finds marker (case-insensitively) in s and returns
// the run of digits immediately following it, if marker appears and is
// followed by at least one digit.
func vorbisCutSuffixDigits(s, marker string) (string, bool) {
	idx := strings.LastIndex(strings.ToUpper(s), marker)
	if idx < 0 {
		return "", false
	}
	digits := s[idx+len(marker):]
	end := 0
	for end < len(digits) && digits[end] >= '0' && digits[end] <= '9' {
		end++
	}
	if end == 0 {
		return "", false
	}
	return digits[:end], true
}

// vorbisScanMarkerLoop implements the MarkerNum=0002 + two subsequent M=
// hex-marker convention: MarkerNum announces how many M= markers follow,
// and the first M= marker's hex value (base 16) is the loop start sample.
// This needs the comments in their original order since a map keyed by
// upper-cased name can't hold the repeated "M" key.
func vorbisScanMarkerLoop(comments []string) (start int64, ok bool) {
	markerIdx := -1
	for i, c := range comments {
		k, _, cut := strings.Cut(c, "=")
		if cut && strings.EqualFold(k, "MarkerNum") {
			markerIdx = i
			break
		}
	}
	if markerIdx < 0 {
		return 0, false
	}

	var markers []string
	for i := markerIdx + 1; i < len(comments) && len(markers) < 2; i++ {
		k, val, cut := strings.Cut(comments[i], "=")
		if cut && strings.EqualFold(k, "M") {
			markers = append(markers, val)
		}
	}
	if len(markers) < 2 {
		return 0, false
	}
	v, err := strconv.ParseInt(markers[0], 16, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// vorbisScanLoopTime matches the "loopTime "/"- loopTime " substring
// convention (spec.md §4.3): a comment value containing that marker
// followed by a millisecond count names a forced loop/seek point.
func vorbisScanLoopTime(comments []string) (startMS int64, ok bool) {
	for _, c := range comments {
		for _, marker := range []string{"- loopTime ", "loopTime "} {
			idx := strings.Index(c, marker)
			if idx < 0 {
				continue
			}
			digits := c[idx+len(marker):]
			end := 0
			for end < len(digits) && digits[end] >= '0' && digits[end] <= '9' {
				end++
			}
			if end == 0 {
				continue
			}
			return parseIntLenient(digits[:end]), true
		}
	}
	return 0, false
}

func parseIntLenient(s string) int64 {
	var n int64
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int64(r-'0')
	}
	return n
}

// LoopFromComments reports loop points scanned from Vorbis comment tags,
// if any were found (spec.md §6.5). Values are sample counts, except when
// the matched tag was LOOPMS or a "loopTime " marker: those are
// millisecond counts, since converting them to samples needs the stream's
// rate and this scan has no access to it (see DESIGN.md).
func (v *Vorbis) LoopFromComments() (start, end int64, ok bool) {
	return v.loopFromComment, v.loopToComment, v.haveLoop
}

func (v *Vorbis) Decode(sf streamfile.File, offset int64, out []int16, nSamples, channel int) error {
	if err := v.ensureDecoded(sf); err != nil {
		return err
	}
	frameIdx := int(offset) // offset is interpreted as a starting frame index for this codec
	for i := 0; i < nSamples; i++ {
		idx := (frameIdx+i)*v.channels + channel
		if idx < 0 || idx >= len(v.decoded) {
			out[i] = 0
			continue
		}
		out[i] = v.decoded[idx]
	}
	return nil
}

func (v *Vorbis) Reset(channel int) error { return nil }

func (v *Vorbis) SeekDiscard(sf streamfile.File, offset int64, samples, channel int) error {
	return nil
}
