package vgmstream

import (
	"strings"

	"github.com/farcloser/vgmgo/meta"
)

// DefaultRegistry builds the registry of every format recognizer this
// engine ships, in the priority order containers should be tried (spec.md
// §6.3): container formats that wrap/select inner subfiles (CPK, AAX,
// ACB→AWB) are tried before the encrypted/obfuscated single-stream formats,
// which in turn precede plain extension-distinguished formats, matching
// the teacher's "signature check, else fail fast" single-priority-list
// dispatch generalized to N candidates (spec.md §2).
func DefaultRegistry() *meta.Registry {
	r := meta.NewRegistry()

	r.Register(meta.NewAAX())
	r.Register(meta.NewACBAWB())
	r.Register(meta.NewCPK())
	r.Register(meta.NewAWB())

	r.Register(meta.NewFSB())
	r.Register(meta.NewSSCF())
	r.Register(meta.NewPS2ENTH())

	r.Register(meta.NewBGW())
	r.Register(meta.NewSPW())
	r.Register(meta.NewVSV())
	r.Register(meta.NewIVB())
	r.Register(meta.NewXAVS())

	r.Register(meta.NewOggEnc("ogg"))
	r.Register(meta.NewOggEnc("logg"))

	return r
}

// extensionTable lists every extension a registered meta recognizes,
// mirroring spec.md §6.1's get_extensions()/get_common_extensions() static
// arrays. commonExtensions is the subset IsValid's AcceptCommon flag
// widens matching to (formats sharing a well-known extension with
// unrelated non-game-audio files, e.g. plain .ogg).
var extensionTable = []string{
	"aax", "acb", "awb", "cpk",
	"bgw", "spw", "vsv", "ivb", "xavs",
	"fsb", "sscf", "enth",
	"ogg", "logg",
}

var commonExtensionTable = []string{"ogg"}

// GetExtensions returns every extension this engine's metas recognize
// (spec.md §6.1).
func GetExtensions() []string {
	out := make([]string, len(extensionTable))
	copy(out, extensionTable)
	return out
}

// GetCommonExtensions returns the subset of extensions shared with
// non-game-audio file types, which IsValid only matches when
// ValidConfig.AcceptCommon is set (spec.md §6.1).
func GetCommonExtensions() []string {
	out := make([]string, len(commonExtensionTable))
	copy(out, commonExtensionTable)
	return out
}

func extOf(filename string) string {
	idx := strings.LastIndexByte(filename, '.')
	if idx < 0 || idx == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[idx+1:])
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// IsValid reports whether filename plausibly names a format this engine
// supports, without opening it, per spec.md §6.1's flag set.
func IsValid(filename string, cfg ValidConfig) bool {
	ext := extOf(filename)
	if ext == "" {
		return !cfg.RejectExtensionless
	}

	if contains(extensionTable, ext) {
		if contains(commonExtensionTable, ext) && !cfg.AcceptCommon && !cfg.SkipDefault {
			return false
		}
		return true
	}

	return cfg.AcceptUnknown
}
