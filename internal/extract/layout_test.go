package extract

import "testing"

func span(t *testing.T, l Layout, block, line, idx int) Span {
	t.Helper()
	if block >= len(l.Blocks) || line >= len(l.Blocks[block].Lines) || idx >= len(l.Blocks[block].Lines[line].Spans) {
		t.Fatalf("span [%d][%d][%d] out of range in %+v", block, line, idx, l)
	}
	return l.Blocks[block].Lines[line].Spans[idx]
}

func TestGroupWords_LinesAndBlocks(t *testing.T) {
	words := []word{
		{text: "Hello", bbox: [4]float64{10, 10, 40, 22}, font: "Helvetica", size: 12},
		{text: "world", bbox: [4]float64{45, 13, 75, 25}, font: "Helvetica", size: 12},
		// 8 points below the line anchor: same block, new line.
		{text: "second", bbox: [4]float64{10, 18, 50, 30}, font: "Helvetica", size: 12},
		// 30 points below the block anchor: new block.
		{text: "footer", bbox: [4]float64{10, 40, 50, 52}, font: "Helvetica", size: 12},
	}

	l := groupWords(612, 792, 0, words)
	if l.Width != 612 || l.Height != 792 || l.Rotation != 0 {
		t.Errorf("page geometry lost: %+v", l)
	}
	if len(l.Blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(l.Blocks))
	}
	if len(l.Blocks[0].Lines) != 2 {
		t.Fatalf("lines in first block = %d, want 2", len(l.Blocks[0].Lines))
	}
	if got := span(t, l, 0, 0, 1).Text; got != "world" {
		t.Errorf("second span of first line = %q, want world", got)
	}
	if got := span(t, l, 0, 1, 0).Text; got != "second" {
		t.Errorf("first span of second line = %q, want second", got)
	}
	if got := span(t, l, 1, 0, 0).Text; got != "footer" {
		t.Errorf("first span of second block = %q, want footer", got)
	}
}

func TestGroupWords_Empty(t *testing.T) {
	l := groupWords(100, 200, 90, nil)
	if l.Blocks == nil || len(l.Blocks) != 0 {
		t.Errorf("expected empty non-nil blocks, got %+v", l.Blocks)
	}
	if l.Rotation != 90 {
		t.Errorf("rotation = %d, want 90", l.Rotation)
	}
}

func TestParseTSV(t *testing.T) {
	tsv := "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
		"5\t1\t1\t1\t1\t1\t10\t20\t30\t12\t91.5\tHello\n" +
		"5\t1\t1\t1\t1\t2\t45\t21\t28\t12\t88.0\tworld\n" +
		"5\t1\t1\t1\t2\t1\t10\t50\t30\t12\t25.0\tnoise\n" +
		"5\t1\t1\t1\t2\t2\t10\t50\t30\t12\t-1\t\n" +
		"malformed row\n"

	l := parseTSV(tsv, 800, 600)
	if l.Width != 800 || l.Height != 600 {
		t.Errorf("image geometry lost: %+v", l)
	}
	if len(l.Blocks) != 1 || len(l.Blocks[0].Lines) != 1 {
		t.Fatalf("low-confidence words not filtered: %+v", l.Blocks)
	}
	spans := l.Blocks[0].Lines[0].Spans
	if len(spans) != 2 || spans[0].Text != "Hello" || spans[1].Text != "world" {
		t.Fatalf("spans = %+v", spans)
	}
	if spans[0].Font != "tesseract" || spans[0].Size != 12 || spans[0].Flags != 0 {
		t.Errorf("OCR span attributes wrong: %+v", spans[0])
	}
	if spans[0].BBox != [4]float64{10, 20, 40, 32} {
		t.Errorf("bbox = %v", spans[0].BBox)
	}
}
