// Package assets provides the resources the PDF converter needs: the base
// stylesheet and the font faces embedded into every rendered document.
//
// # Loader Architecture
//
//	Loader (interface)
//	    │
//	    ├── EmbeddedLoader    - base stylesheet compiled into the binary
//	    ├── FilesystemLoader  - stylesheets and font faces from a directory
//	    └── Resolver          - custom-first lookup with embedded fallback
//
// Fonts are never embedded: the operator points the resolver at a directory
// holding the canonical family, so output never depends on system fonts.
//
// # Directory Structure
//
//	{basePath}/
//	├── styles/
//	│   └── {name}.css
//	└── fonts/
//	    ├── {Family}-Regular.ttf   # required
//	    ├── {Family}-Bold.ttf
//	    ├── {Family}-Italic.ttf
//	    └── {Family}-BoldItalic.ttf
//
// {Family} is the family name without spaces ("Times New Roman" looks for
// TimesNewRoman-Regular.ttf). OpenType (.otf) files are accepted too.
//
// # Paths
//
// Names never contain separators or dots, and every path is checked with
// fileutil.ContainedPath after symlinks are resolved.
package assets
