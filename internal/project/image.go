package project

import (
	"regexp"
	"strings"
)

// Image is a referenced asset, identified by its href relative to the map
// folder. The map owns the canonical Image set; topics hold hrefs into it
// and only annotate the title of images they label.
type Image struct {
	Href string
	// Title is the figure title from the first topic that labels the
	// image, empty when no topic does.
	Title string
	// DisplayTitle is the disambiguated title: equal to Title for the
	// first image carrying it, suffixed with a 1-based index for later
	// duplicates.
	DisplayTitle string
	Ext          string
}

func newImage(href string) *Image {
	ext := ""
	if i := strings.LastIndex(href, "."); i >= 0 {
		ext = href[i:]
	}
	return &Image{Href: href, Ext: ext}
}

var nonWordRe = regexp.MustCompile(`\W+`)

// GenerateName derives the style-guide file name for the asset. It is a
// pure function of the image's disambiguated title, href, and the given
// prefix; collision detection across images is the caller's concern.
func (img *Image) GenerateName(prefix string) string {
	var name string
	if img.DisplayTitle != "" {
		name = strings.ReplaceAll(img.DisplayTitle, " ", "_")
	} else {
		// No title: fall back to the href's last segment minus extension.
		name = strings.TrimSuffix(img.Href, img.Ext)
		if i := strings.LastIndex(name, "/"); i >= 0 {
			name = name[i+1:]
		}
	}
	return "img_" + prefix + "_" + nonWordRe.ReplaceAllString(name, "") + img.Ext
}

func (img *Image) String() string {
	if img.Title != "" {
		return "<Image " + img.Href + ": " + img.Title + ">"
	}
	return "<Image " + img.Href + ">"
}
