package verify

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// iconMatchThreshold is the minimum similarity for a template to count as the
// detected crop.
const iconMatchThreshold = 70.0

// compareSize is the square edge both template and region are scaled to
// before pixel comparison.
const compareSize = 64

// IconMatcher holds the per-crop reference icons.
type IconMatcher struct {
	templates map[string]image.Image
}

// LoadIcons reads reference icons from dir; the file stem is the crop name
// (e.g. "Milho.png"). An empty or missing dir yields a matcher with no
// templates, which never detects anything.
func LoadIcons(dir string) (*IconMatcher, error) {
	m := &IconMatcher{templates: make(map[string]image.Image)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("failed to read icon dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".png" && ext != ".jpg" && ext != ".jpeg" {
			continue
		}
		img, err := imaging.Open(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to load icon %s: %w", e.Name(), err)
		}
		crop := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		m.templates[crop] = img
	}
	return m, nil
}

func (m *IconMatcher) Empty() bool {
	return m == nil || len(m.templates) == 0
}

// BestMatch compares the inventory region against every template and returns
// the best crop with its similarity percentage. The caller decides against
// iconMatchThreshold.
func (m *IconMatcher) BestMatch(region image.Image) (string, float64) {
	var bestCrop string
	var bestSim float64

	for crop, tmpl := range m.templates {
		sim := similarity(region, tmpl)
		if sim > bestSim {
			bestCrop, bestSim = crop, sim
		}
	}
	return bestCrop, bestSim
}

// similarity is the mean per-pixel greyscale distance converted to a
// percentage: identical images score 100, full black vs full white scores 0.
func similarity(a, b image.Image) float64 {
	ga := imaging.Resize(imaging.Grayscale(a), compareSize, compareSize, imaging.Lanczos)
	gb := imaging.Resize(imaging.Grayscale(b), compareSize, compareSize, imaging.Lanczos)

	var total float64
	for y := 0; y < compareSize; y++ {
		for x := 0; x < compareSize; x++ {
			total += absDiff(grey(ga.At(x, y)), grey(gb.At(x, y)))
		}
	}
	avg := total / float64(compareSize*compareSize)
	return 100.0 * (1.0 - avg/255.0)
}

func grey(c color.Color) float64 {
	g := color.GrayModel.Convert(c).(color.Gray)
	return float64(g.Y)
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
