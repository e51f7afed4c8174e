// Package project implements the document graph of a DITA project: the map,
// its topics, their images, and the sidecar records, together with the
// cross-file operations (rename propagation, casting, image renaming,
// structural edits) that keep them mutually consistent.
package project

// Provenance identifies which upstream converter produced the project.
// It determines sidecar-record expectations and image-folder conventions.
type Provenance string

const (
	// ProvenanceCheetah projects come from the Cheetah-to-DITA converter
	// and pair every topic with a .3sish sidecar record.
	ProvenanceCheetah Provenance = "cheetah"
	// ProvenanceWord projects come from the Word batch converter and may
	// keep images in a conventional subfolder.
	ProvenanceWord Provenance = "word"
)

// SemanticType is the closed set of topic variants.
type SemanticType int

const (
	TypePlain SemanticType = iota
	TypeConcept
	TypeTask
	TypeReference
	TypeLegal
)

func (t SemanticType) String() string {
	switch t {
	case TypeConcept:
		return "concept"
	case TypeTask:
		return "task"
	case TypeReference:
		return "reference"
	case TypeLegal:
		return "legal"
	default:
		return "plain"
	}
}

// ParseSemanticType maps a variant name back to its SemanticType.
func ParseSemanticType(s string) (SemanticType, bool) {
	switch s {
	case "plain", "topic":
		return TypePlain, true
	case "concept":
		return TypeConcept, true
	case "task":
		return TypeTask, true
	case "reference":
		return TypeReference, true
	case "legal":
		return TypeLegal, true
	}
	return TypePlain, false
}

// ClassifyOutputclass maps an outputclass value to a topic variant.
func ClassifyOutputclass(outputclass string) SemanticType {
	switch outputclass {
	case "context", "lpcontext":
		return TypeConcept
	case "procedure":
		return TypeTask
	case "referenceinformation":
		return TypeReference
	case "legalinformation":
		return TypeLegal
	default:
		return TypePlain
	}
}

// outputclassFor is the canonical outputclass written when casting to a
// variant.
func outputclassFor(t SemanticType) string {
	switch t {
	case TypeConcept:
		return "context"
	case TypeTask:
		return "procedure"
	case TypeReference:
		return "referenceinformation"
	case TypeLegal:
		return "legalinformation"
	default:
		return "explanation"
	}
}

// prefixes maps an outputclass to the identifying letter the style guide
// prepends to the file name.
var prefixes = map[string]string{
	"explanation":          "e_",
	"referenceinformation": "r_",
	"context":              "c_",
	"lpcontext":            "c_",
	"procedure":            "t_",
	"legalinformation":     "e_",
}

// docKinds are the root tags of recognized document kinds; only topics with
// these roots take part in the rename pass.
var docKinds = map[string]bool{
	"concept":   true,
	"task":      true,
	"reference": true,
}

// refTypeFor is the topicref type attribute written into the map after a
// cast.
func refTypeFor(t SemanticType) string {
	switch t {
	case TypeTask:
		return "task"
	case TypeReference, TypeLegal:
		return "reference"
	default:
		return "concept"
	}
}

// File extensions the project works with.
const (
	DocExt   = ".dita"
	AuxExt   = ".3sish"
	MapExt   = ".ditamap"
)

// imageFolderCandidates are the conventional asset-subfolder names probed
// under Word provenance.
var imageFolderCandidates = []string{"media", "images"}

// imageExts are the asset extensions collected into the map's image set.
var imageExts = []string{".png", ".jpg", ".gif"}
