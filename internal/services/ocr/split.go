package ocr

import (
	"regexp"
	"strings"

	"github.com/ternarybob/scriba/internal/models"
)

var (
	// fieldPattern matches "Field Name: value tokens" runs so blocks like
	// "Numero Delivery Note: ALB-54288 Fecha: 2025-11-27" break apart.
	fieldPattern  = regexp.MustCompile(`[A-Za-zÁÉÍÓÚáéíóúÑñ\s/]+:\s*[^\s:]+(?:\s+[^\s:]+)*`)
	spacesPattern = regexp.MustCompile(`\s{2,}`)
)

// splitLargeItem breaks a layout-analysis text block containing several
// fields into per-field items, subdividing the bounding box proportionally
// by character offsets. Items too short or without field markers pass
// through unchanged.
func splitLargeItem(item models.OcrItem) []models.OcrItem {
	text := strings.TrimSpace(item.Text)
	runes := []rune(text)
	if len(runes) < 30 {
		return []models.OcrItem{item}
	}

	colons := strings.Count(text, ":")
	pipes := strings.Count(text, "|")
	if colons < 2 && pipes == 0 {
		return []models.OcrItem{item}
	}

	var parts []string
	if pipes > 0 {
		for _, p := range strings.Split(text, "|") {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
	} else {
		matches := fieldPattern.FindAllString(text, -1)
		if len(matches) > 1 {
			for _, m := range matches {
				if trimmed := strings.TrimSpace(m); trimmed != "" {
					parts = append(parts, trimmed)
				}
			}
		} else {
			// Runs of spaces separate columns on the same line.
			for _, p := range spacesPattern.Split(text, -1) {
				trimmed := strings.TrimSpace(p)
				if trimmed != "" && len([]rune(trimmed)) > 3 {
					parts = append(parts, trimmed)
				}
			}
		}
	}

	if len(parts) <= 1 {
		return []models.OcrItem{item}
	}

	left := item.BBox.Left
	top := item.BBox.Top
	bboxWidth := item.BBox.Right - left
	bboxHeight := item.BBox.Bottom - top

	origin := item.BBox.CoordOrigin
	if origin == "" {
		origin = models.CoordOriginBottomLeft
	}

	splitItems := make([]models.OcrItem, 0, len(parts))
	total := len(runes)
	currentPos := 0

	for _, part := range parts {
		partRunes := []rune(part)
		partStart := runeIndexFrom(runes, partRunes, currentPos)
		if partStart == -1 {
			partStart = currentPos
		}
		partEnd := partStart + len(partRunes)
		currentPos = maxInt(partEnd, currentPos+1)

		startRatio := float64(partStart) / float64(total)
		endRatio := float64(partEnd) / float64(total)
		partLeft := left + bboxWidth*startRatio
		partRight := left + bboxWidth*endRatio

		var partTop, partBottom float64
		if len(parts) > 3 && bboxHeight > bboxWidth*0.5 {
			// Tall blocks hold multiple lines; distribute parts vertically.
			partIndex := indexOfString(parts, part)
			linesEstimate := minInt(len(parts), maxInt(1, int(bboxHeight/(bboxWidth*0.1))))
			lineHeight := bboxHeight / float64(linesEstimate)
			lineNum := minInt(partIndex, linesEstimate-1)
			partTop = top + float64(lineNum)*lineHeight
			partBottom = partTop + lineHeight
		} else {
			partTop = top
			partBottom = item.BBox.Bottom
		}

		splitItems = append(splitItems, models.OcrItem{
			PageNo: item.PageNo,
			Text:   part,
			BBox: models.BoundingBox{
				Left:        partLeft,
				Top:         partTop,
				Right:       partRight,
				Bottom:      partBottom,
				CoordOrigin: origin,
			},
		})
	}

	if len(splitItems) > 1 {
		return splitItems
	}
	return []models.OcrItem{item}
}

// runeIndexFrom finds needle in haystack at or after the from index,
// returning -1 when absent.
func runeIndexFrom(haystack, needle []rune, from int) int {
	if from < 0 {
		from = 0
	}
	if len(needle) == 0 {
		return from
	}
	for i := from; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func indexOfString(values []string, value string) int {
	for i, v := range values {
		if v == value {
			return i
		}
	}
	return -1
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
