package analyzer

import "image"

// Analyzer runs the screening pipeline on a single photograph.
// Implementations are stateless and safe for concurrent use.
type Analyzer interface {
	AnalyzeBend(img image.Image) (BendResult, error)
	AnalyzePosture(img image.Image) (PostureResult, error)

	// Raw pixel buffer variants
	AnalyzeBendRaster(r Raster) (BendResult, error)
	AnalyzePostureRaster(r Raster) (PostureResult, error)
}

// Preprocessor turns a normalised grayscale raster into a binary silhouette mask
type Preprocessor interface {
	Preprocess(gray *image.Gray) *image.Gray
}

// ContourExtractor finds the external boundaries of a binary mask
type ContourExtractor interface {
	FindExternal(mask *image.Gray) []Contour
}
