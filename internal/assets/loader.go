package assets

// Loader defines the contract for loading stylesheets and font families.
type Loader interface {
	// LoadStyle loads a CSS stylesheet by name (without .css extension).
	// Returns ErrStyleNotFound if the style doesn't exist.
	// Returns ErrInvalidAssetName if the name contains invalid characters.
	LoadStyle(name string) (string, error)

	// LoadFont loads every available face of a font family.
	// Returns ErrFontNotFound if the regular face is missing and
	// ErrInvalidFont if a face cannot be parsed.
	LoadFont(family string) (*FontSet, error)
}

// DefaultStyleName is the name of the built-in stylesheet.
const DefaultStyleName = "document"
