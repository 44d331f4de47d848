package config

import "git.home.luguber.info/inful/assetflow/internal/foundation/normalization"

// ScriptTarget is the language level scripts are transpiled down to.
type ScriptTarget string

const (
	ScriptTargetES2015 ScriptTarget = "es2015"
	ScriptTargetES2017 ScriptTarget = "es2017"
	ScriptTargetES2020 ScriptTarget = "es2020"
	ScriptTargetESNext ScriptTarget = "esnext"
)

var scriptTargetNormalizer = normalization.NewNormalizer("scripts.target", map[string]ScriptTarget{
	"es2015": ScriptTargetES2015,
	"es6":    ScriptTargetES2015,
	"es2017": ScriptTargetES2017,
	"es2020": ScriptTargetES2020,
	"esnext": ScriptTargetESNext,
}, ScriptTargetES2015)
