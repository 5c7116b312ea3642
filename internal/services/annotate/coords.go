package annotate

import (
	"math"

	"github.com/ternarybob/scriba/internal/models"
)

// Word engines rasterize at 300 DPI; boxes that overshoot the page point
// bounds are assumed to be measured on that raster.
const wordEngineDPI = 300.0

// clipBBox clamps a projected box into the raster bounds and drops boxes
// that collapse after clamping.
func clipBBox(left, top, right, bottom float64, width, height int) ([4]int, bool) {
	left = math.Max(0, math.Min(float64(width-1), left))
	top = math.Max(0, math.Min(float64(height-1), top))
	right = math.Max(0, math.Min(float64(width-1), right))
	bottom = math.Max(0, math.Min(float64(height-1), bottom))

	if right <= left || bottom <= top {
		return [4]int{}, false
	}

	return [4]int{
		int(math.Round(left)),
		int(math.Round(top)),
		int(math.Round(right)),
		int(math.Round(bottom)),
	}, true
}

// scaleBox maps a box from one pixel space onto another.
func scaleBox(box models.BoundingBox, sx, sy float64) (float64, float64, float64, float64) {
	return box.Left * sx, box.Top * sy, box.Right * sx, box.Bottom * sy
}

// projectPointsToRaster converts a box reported against the PDF page into
// rendered pixels. Coordinates far outside the page point bounds were
// measured on a word engine raster and are converted back to points first;
// bottom-left boxes are flipped against the page height before scaling.
func projectPointsToRaster(box models.BoundingBox, pageWPt, pageHPt, scaleX, scaleY float64) (float64, float64, float64, float64) {
	left, top, right, bottom := box.Left, box.Top, box.Right, box.Bottom

	maxCoord := math.Max(math.Max(right, bottom), math.Max(math.Abs(left), math.Abs(top)))
	maxPageDim := math.Max(pageWPt, pageHPt)
	avgCoord := (math.Abs(left) + math.Abs(top) + right + bottom) / 4.0

	if maxCoord > maxPageDim*1.2 || avgCoord > maxPageDim*1.1 {
		pointsPerPixel := 72.0 / wordEngineDPI
		left *= pointsPerPixel
		top *= pointsPerPixel
		right *= pointsPerPixel
		bottom *= pointsPerPixel
	}

	if box.CoordOrigin == models.CoordOriginBottomLeft && pageHPt > 0 {
		top, bottom = pageHPt-top, pageHPt-bottom
	}

	return left * scaleX, top * scaleY, right * scaleX, bottom * scaleY
}

// projectImageItem places a box onto a directly loaded image. Boxes carry
// image pixel coordinates unless the recognition raster differed from the
// stored file, in which case they are rescaled by the dimension ratio.
func projectImageItem(box models.BoundingBox, ocrDim [2]int, hasDims bool, imgW, imgH int) (float64, float64, float64, float64) {
	if hasDims && ocrDim[0] > 0 && ocrDim[1] > 0 && (ocrDim[0] != imgW || ocrDim[1] != imgH) {
		return scaleBox(box, float64(imgW)/float64(ocrDim[0]), float64(imgH)/float64(ocrDim[1]))
	}

	left, top, right, bottom := box.Left, box.Top, box.Right, box.Bottom
	if box.CoordOrigin == models.CoordOriginBottomLeft {
		top, bottom = float64(imgH)-top, float64(imgH)-bottom
		if top > bottom {
			top, bottom = bottom, top
		}
	}
	return left, top, right, bottom
}
