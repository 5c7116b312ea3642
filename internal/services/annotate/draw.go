package annotate

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	boxColor       = color.RGBA{G: 200, A: 255}
	tagFillColor   = color.RGBA{R: 255, G: 200, A: 255}
	tagBorderColor = color.RGBA{R: 200, G: 150, A: 255}
	panelColor     = color.RGBA{A: 180}
	titleColor     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	legendColor    = color.RGBA{R: 230, G: 230, B: 230, A: 255}
)

var regularFont *opentype.Font

func init() {
	if f, err := opentype.Parse(goregular.TTF); err == nil {
		regularFont = f
	}
}

// newFace builds a Go Regular face at the requested point size, falling
// back to the fixed 7x13 face when the embedded font is unusable.
func newFace(size float64) font.Face {
	if regularFont == nil {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(regularFont, &opentype.FaceOptions{Size: size, DPI: 72})
	if err != nil {
		return basicfont.Face7x13
	}
	return face
}

func fillRect(img draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(img, r.Intersect(img.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)
}

// strokeRect draws the rectangle outline inside its bounds.
func strokeRect(img draw.Image, r image.Rectangle, c color.Color, width int) {
	sides := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width),
		image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y),
		image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, side := range sides {
		fillRect(img, side, c)
	}
}

// drawText renders s with its top-left corner at (x, y).
func drawText(img draw.Image, x, y int, s string, face font.Face, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)
}

// measureString reports the advance width and ink height of s in pixels.
func measureString(face font.Face, s string) (int, int) {
	bounds, advance := font.BoundString(face, s)
	return advance.Ceil(), (bounds.Max.Y - bounds.Min.Y).Ceil()
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// drawBoxAnnotations outlines one OCR box and labels it with the matched
// field tag above and the leading recognized text inside.
func drawBoxAnnotations(img draw.Image, box [4]int, text, fieldName string, textFace, tagFace font.Face) {
	l, t, r, b := box[0], box[1], box[2], box[3]

	strokeRect(img, image.Rect(l, t, r+1, b+1), boxColor, 2)

	if fieldName != "" {
		tagW, tagH := measureString(tagFace, fieldName)
		tagX := l
		tagY := t - tagH - 4
		if tagY < 0 {
			tagY = 0
		}

		tagBG := image.Rect(tagX-2, tagY-2, tagX+tagW+5, tagY+tagH+3)
		fillRect(img, tagBG, tagFillColor)
		strokeRect(img, tagBG, tagBorderColor, 1)
		drawText(img, tagX, tagY, fieldName, tagFace, color.Black)
	}

	label := truncateRunes(text, 30)
	labelW, labelH := measureString(textFace, label)
	fillRect(img, image.Rect(l+2, t+2, l+labelW+7, t+labelH+7), color.White)
	drawText(img, l+3, t+3, label, textFace, color.Black)
}

// overlayLegend composes the semi-transparent field panel over the right
// side of a rendered page.
func overlayLegend(img draw.Image, lines []string) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	panelWidth := int(float64(width) * 0.4)
	panelX := width - panelWidth
	draw.Draw(img, image.Rect(panelX, 0, width, height), image.NewUniform(panelColor), image.Point{}, draw.Over)

	titleFace := newFace(20)
	bodyFace := newFace(14)

	x, y := panelX+15, 15
	drawText(img, x, y, "Extracted Fields", titleFace, titleColor)
	y += 30

	for _, line := range lines {
		if line == "" {
			y += 5
			continue
		}
		drawText(img, x, y, line, bodyFace, legendColor)
		y += 18
		if y > height-20 {
			break
		}
	}
}
