package extract

// Layout describes positioned text on one page. Blocks group lines, lines
// group spans; every bbox is [x0, y0, x1, y1] in page points with a
// top-left origin.
type Layout struct {
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation int     `json:"rotation"`
	Blocks   []Block `json:"blocks"`
}

// Block is a group of lines separated from its neighbours by a large
// vertical gap.
type Block struct {
	BBox  [4]float64 `json:"bbox"`
	Lines []Line     `json:"lines"`
}

// Line is a row of spans sharing roughly the same baseline.
type Line struct {
	BBox  [4]float64 `json:"bbox"`
	Spans []Span     `json:"spans"`
}

// Span is one positioned text fragment.
type Span struct {
	Text  string     `json:"text"`
	BBox  [4]float64 `json:"bbox"`
	Font  string     `json:"font"`
	Size  float64    `json:"size"`
	Flags int        `json:"flags"`
}

const (
	blockGapY = 20.0
	lineGapY  = 5.0
)

// word is one positioned fragment before grouping.
type word struct {
	text  string
	bbox  [4]float64
	font  string
	size  float64
	flags int
}

// groupWords folds positioned words into blocks and lines by vertical
// distance from the block / line anchor: more than blockGapY starts a new
// block, more than lineGapY a new line within the block.
func groupWords(width, height float64, rotation int, words []word) Layout {
	layout := Layout{Width: width, Height: height, Rotation: rotation, Blocks: []Block{}}

	var (
		block  *Block
		line   *Line
		blockY float64
		lineY  float64
	)
	flush := func() {
		if block == nil {
			return
		}
		if line != nil {
			block.Lines = append(block.Lines, *line)
			line = nil
		}
		layout.Blocks = append(layout.Blocks, *block)
		block = nil
	}

	for _, w := range words {
		y := w.bbox[1]
		switch {
		case block == nil || absFloat(y-blockY) > blockGapY:
			flush()
			block = &Block{BBox: w.bbox, Lines: []Line{}}
			blockY = y
			line = &Line{BBox: w.bbox}
			lineY = y
		case absFloat(y-lineY) > lineGapY:
			block.Lines = append(block.Lines, *line)
			line = &Line{BBox: w.bbox}
			lineY = y
		}
		line.Spans = append(line.Spans, Span{
			Text:  w.text,
			BBox:  w.bbox,
			Font:  w.font,
			Size:  w.size,
			Flags: w.flags,
		})
	}
	flush()
	return layout
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
