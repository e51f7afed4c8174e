package mcpserver

// StyleGuide describes the canonical file-naming scheme that LLM consumers
// should understand before invoking the rename tools.
const StyleGuide = `# Ditakeeper Naming Style Guide

Every topic and image file in a Ditakeeper project follows this scheme.

## Topic file names

A topic's canonical name is derived from its title:

1. Whitespace and punctuation become underscores; runs collapse to one.
2. The filler word "the" between underscores is dropped.
3. Any remaining non-word characters are removed.
4. A single-letter prefix identifies the topic variant:

   | Prefix | Variant   | outputclass          |
   |--------|-----------|----------------------|
   | ` + "`c_`" + `  | concept   | context, lpcontext   |
   | ` + "`t_`" + `  | task      | procedure            |
   | ` + "`r_`" + `  | reference | referenceinformation |
   | ` + "`e_`" + `  | plain     | explanation, legalinformation |

5. When several topics share a title, the second and later ones get a
   numeric suffix: ` + "`t_Install_unit_2.dita`" + `.

Topics whose title is still the placeholder, or missing entirely, keep
their current file name. List them with the ` + "`list_problems`" + ` tool and
fix the titles before renaming.

## Image file names

Images are named ` + "`img_<prefix>_<title>.<ext>`" + `, where the prefix is the
project prefix passed to ` + "`rename_images`" + ` and the title comes from the
figure caption of the first topic that labels the image. Spaces in the
title become underscores. Untitled images fall back to their current
file name stem.

## Rules

1. File names use only word characters and underscores, never spaces.
2. Topic files end with ` + "`.dita`" + `; the map ends with ` + "`.ditamap`" + `.
3. Projects converted from Cheetah pair every topic with a ` + "`.3sish`" + `
   sidecar record; the pair always moves together.
4. Renames never overwrite: a topic whose canonical name is already
   taken on disk keeps its current name and is reported in the log.
`
