package annotate

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/basicfont"
)

func newCanvas(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func TestStrokeRectDrawsInsideBounds(t *testing.T) {
	img := newCanvas(20, 20, color.White)

	strokeRect(img, image.Rect(5, 5, 15, 15), boxColor, 2)

	assert.Equal(t, boxColor, img.RGBAAt(5, 5), "corner")
	assert.Equal(t, boxColor, img.RGBAAt(6, 6), "second stroke row")
	assert.Equal(t, boxColor, img.RGBAAt(14, 14), "opposite corner")
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(7, 7), "interior untouched")
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(4, 4), "outside untouched")
}

func TestDrawBoxAnnotationsMarksBoxTagAndLabel(t *testing.T) {
	img := newCanvas(200, 100, color.Black)
	textFace := newFace(9)
	tagFace := newFace(8)

	drawBoxAnnotations(img, [4]int{20, 30, 120, 60}, "121.00", "total_albaran", textFace, tagFace)

	assert.Equal(t, boxColor, img.RGBAAt(20, 30), "box outline")
	assert.Equal(t, boxColor, img.RGBAAt(21, 31), "outline is two pixels wide")
	assert.Equal(t, color.RGBA{A: 255}, img.RGBAAt(115, 55), "interior stays untouched")

	tagged := false
	for y := 0; y < 30 && !tagged; y++ {
		for x := 16; x < 120; x++ {
			if img.RGBAAt(x, y) == tagFillColor {
				tagged = true
				break
			}
		}
	}
	assert.True(t, tagged, "field tag background above the box")

	labeled := false
	for y := 32; y < 58 && !labeled; y++ {
		for x := 22; x < 118; x++ {
			if img.RGBAAt(x, y) == (color.RGBA{255, 255, 255, 255}) {
				labeled = true
				break
			}
		}
	}
	assert.True(t, labeled, "text label background inside the box")
}

func TestDrawBoxAnnotationsClampsTagToTop(t *testing.T) {
	img := newCanvas(200, 100, color.Black)

	drawBoxAnnotations(img, [4]int{20, 3, 120, 40}, "texto", "empresa", newFace(9), newFace(8))

	tagged := false
	for y := 0; y < 8 && !tagged; y++ {
		for x := 16; x < 120; x++ {
			if img.RGBAAt(x, y) == tagFillColor {
				tagged = true
				break
			}
		}
	}
	assert.True(t, tagged, "tag sits at the top edge when the box leaves no room")
}

func TestOverlayLegendDarkensRightPanel(t *testing.T) {
	img := newCanvas(100, 50, color.White)

	overlayLegend(img, []string{"Delivery Note: ALB-1", "", "Total: 121.00 EUR"})

	// Black at alpha 180 over white leaves 75/255 behind.
	assert.Equal(t, color.RGBA{75, 75, 75, 255}, img.RGBAAt(65, 40))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(59, 40), "left of panel untouched")
}

func TestOverlayLegendWritesTitle(t *testing.T) {
	img := newCanvas(400, 200, color.White)

	overlayLegend(img, []string{"linea"})

	// Title ink appears somewhere in the panel's first rows.
	panelX := 400 - int(float64(400)*0.4)
	found := false
	for y := 10; y < 50 && !found; y++ {
		for x := panelX + 10; x < 395; x++ {
			if img.RGBAAt(x, y) == titleColor {
				found = true
				break
			}
		}
	}
	assert.True(t, found, "legend title rendered")
}

func TestMeasureStringReportsInk(t *testing.T) {
	w, h := measureString(newFace(9), "Hola")

	assert.Greater(t, w, 0)
	assert.Greater(t, h, 0)
}

func TestNewFaceFallsBackWithoutFont(t *testing.T) {
	saved := regularFont
	regularFont = nil
	defer func() { regularFont = saved }()

	require.Equal(t, basicfont.Face7x13, newFace(9))
}

func TestTruncateRunesKeepsBoundaries(t *testing.T) {
	assert.Equal(t, "corto", truncateRunes("corto", 30))
	assert.Equal(t, "ññññ", truncateRunes("ññññññ", 4))
	assert.Equal(t, "", truncateRunes("", 30))
}
