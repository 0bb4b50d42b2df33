package terminal

import (
	"strings"
	"sync"

	"github.com/mattn/go-runewidth"
)

// Color is a palette index, or ColorDefault.
type Color int16

// ColorDefault selects the host terminal's default color.
const ColorDefault Color = -1

// Standard ANSI palette indices.
const (
	ColorBlack Color = iota
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorMagenta
	ColorCyan
	ColorWhite
)

// Attr is a set of text attributes.
type Attr uint8

const (
	AttrBold Attr = 1 << iota
	AttrDim
	AttrItalic
	AttrUnderline
	AttrReverse
)

// Has reports whether all of attr is set.
func (a Attr) Has(attr Attr) bool {
	return a&attr == attr
}

// Cell is one character cell.
//
// A wide rune occupies two cells: the first has Width 2, the second is a
// continuation cell with Width 0.
type Cell struct {
	Rune  rune
	Width int
	Fg    Color
	Bg    Color
	Attrs Attr
}

func blankCell() Cell {
	return Cell{Rune: ' ', Width: 1, Fg: ColorDefault, Bg: ColorDefault}
}

func blankLine(width int) []Cell {
	line := make([]Cell, width)
	for i := range line {
		line[i] = blankCell()
	}
	return line
}

// Screen is a fixed-size grid of cells with a cursor.
type Screen struct {
	mu sync.RWMutex

	width  int
	height int
	lines  [][]Cell

	cursorX int
	cursorY int

	fg    Color
	bg    Color
	attrs Attr

	savedX, savedY int
	cursorVisible  bool
}

// NewScreen creates a blank screen. Non-positive sizes fall back to 80x24.
func NewScreen(width, height int) *Screen {
	if width < 1 {
		width = 80
	}
	if height < 1 {
		height = 24
	}
	s := &Screen{
		width:         width,
		height:        height,
		fg:            ColorDefault,
		bg:            ColorDefault,
		cursorVisible: true,
	}
	s.lines = make([][]Cell, height)
	for y := range s.lines {
		s.lines[y] = blankLine(width)
	}
	return s
}

// Size returns the screen dimensions.
func (s *Screen) Size() (width, height int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.width, s.height
}

// Cursor returns the cursor position.
func (s *Screen) Cursor() (x, y int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursorX, s.cursorY
}

// CursorVisible reports whether the cursor should be drawn.
func (s *Screen) CursorVisible() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursorVisible
}

// Cell returns the cell at x, y, or a blank cell when out of range.
func (s *Screen) Cell(x, y int) Cell {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if x < 0 || x >= s.width || y < 0 || y >= s.height {
		return blankCell()
	}
	return s.lines[y][x]
}

// Line returns row y as text with trailing blanks removed.
func (s *Screen) Line(y int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if y < 0 || y >= s.height {
		return ""
	}
	return s.lineTextLocked(y)
}

func (s *Screen) lineTextLocked(y int) string {
	var b strings.Builder
	for _, c := range s.lines[y] {
		if c.Width == 0 {
			continue
		}
		b.WriteRune(c.Rune)
	}
	return strings.TrimRight(b.String(), " ")
}

// Text returns the visible text, one line per row, without trailing blank
// rows.
func (s *Screen) Text() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]string, s.height)
	last := -1
	for y := range rows {
		rows[y] = s.lineTextLocked(y)
		if rows[y] != "" {
			last = y
		}
	}
	return strings.Join(rows[:last+1], "\n")
}

// WriteRune draws r at the cursor and advances it, wrapping at the right
// margin. Zero-width runes are dropped.
func (s *Screen) WriteRune(r rune) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := runewidth.RuneWidth(r)
	if w == 0 {
		return
	}
	if w > s.width {
		return
	}
	if s.cursorX+w > s.width {
		s.cursorX = 0
		s.lineFeedLocked()
	}

	line := s.lines[s.cursorY]
	line[s.cursorX] = Cell{Rune: r, Width: w, Fg: s.fg, Bg: s.bg, Attrs: s.attrs}
	if w == 2 {
		line[s.cursorX+1] = Cell{Width: 0, Fg: s.fg, Bg: s.bg, Attrs: s.attrs}
	}
	s.cursorX += w
}

// MoveCursor places the cursor, clamped to the screen. The cursor may sit one
// past the last column after a write; explicit moves stay inside.
func (s *Screen) MoveCursor(x, y int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moveCursorLocked(x, y)
}

func (s *Screen) moveCursorLocked(x, y int) {
	s.cursorX = clamp(x, 0, s.width-1)
	s.cursorY = clamp(y, 0, s.height-1)
}

// MoveCursorRelative moves the cursor by dx, dy.
func (s *Screen) MoveCursorRelative(dx, dy int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moveCursorLocked(s.cursorX+dx, s.cursorY+dy)
}

// CarriageReturn moves the cursor to column zero.
func (s *Screen) CarriageReturn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursorX = 0
}

// LineFeed moves the cursor down, scrolling at the bottom row.
func (s *Screen) LineFeed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lineFeedLocked()
}

func (s *Screen) lineFeedLocked() {
	if s.cursorY < s.height-1 {
		s.cursorY++
		return
	}
	s.scrollUpLocked(1)
}

// ScrollUp discards the top n rows and adds blank rows at the bottom.
func (s *Screen) ScrollUp(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrollUpLocked(n)
}

func (s *Screen) scrollUpLocked(n int) {
	n = clamp(n, 0, s.height)
	if n == 0 {
		return
	}
	copy(s.lines, s.lines[n:])
	for y := s.height - n; y < s.height; y++ {
		s.lines[y] = blankLine(s.width)
	}
}

// Erase modes for ClearScreen and ClearLine.
const (
	EraseToEnd = iota
	EraseToStart
	EraseAll
)

// ClearScreen erases part of the screen relative to the cursor.
func (s *Screen) ClearScreen(mode int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch mode {
	case EraseToEnd:
		s.clearLineLocked(EraseToEnd)
		for y := s.cursorY + 1; y < s.height; y++ {
			s.lines[y] = blankLine(s.width)
		}
	case EraseToStart:
		s.clearLineLocked(EraseToStart)
		for y := 0; y < s.cursorY; y++ {
			s.lines[y] = blankLine(s.width)
		}
	case EraseAll:
		for y := range s.lines {
			s.lines[y] = blankLine(s.width)
		}
	}
}

// ClearLine erases part of the cursor row.
func (s *Screen) ClearLine(mode int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLineLocked(mode)
}

func (s *Screen) clearLineLocked(mode int) {
	start, end := 0, s.width
	switch mode {
	case EraseToEnd:
		start = s.cursorX
	case EraseToStart:
		end = s.cursorX + 1
	}
	line := s.lines[s.cursorY]
	for x := clamp(start, 0, s.width); x < clamp(end, 0, s.width); x++ {
		line[x] = blankCell()
	}
}

// SetForeground sets the color for subsequent writes.
func (s *Screen) SetForeground(c Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fg = c
}

// SetBackground sets the background for subsequent writes.
func (s *Screen) SetBackground(c Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bg = c
}

// SetAttr turns attr on or off for subsequent writes.
func (s *Screen) SetAttr(attr Attr, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if on {
		s.attrs |= attr
	} else {
		s.attrs &^= attr
	}
}

// ResetStyle restores default colors and attributes.
func (s *Screen) ResetStyle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fg, s.bg, s.attrs = ColorDefault, ColorDefault, 0
}

// SaveCursor remembers the cursor position.
func (s *Screen) SaveCursor() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.savedX, s.savedY = s.cursorX, s.cursorY
}

// RestoreCursor returns to the saved cursor position.
func (s *Screen) RestoreCursor() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moveCursorLocked(s.savedX, s.savedY)
}

// SetCursorVisible shows or hides the cursor.
func (s *Screen) SetCursorVisible(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursorVisible = visible
}

// Resize changes the dimensions, keeping the bottom rows when shrinking so
// the cursor row stays on screen.
func (s *Screen) Resize(width, height int) error {
	if width < 1 || height < 1 {
		return ErrInvalidSize
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if drop := s.cursorY - (height - 1); drop > 0 {
		s.lines = s.lines[drop:]
		s.cursorY -= drop
	}
	lines := make([][]Cell, height)
	for y := range lines {
		lines[y] = blankLine(width)
		if y < len(s.lines) {
			copy(lines[y], s.lines[y])
			// A wide rune cut in half at the new margin becomes a blank
			if width < s.width && lines[y][width-1].Width == 2 {
				lines[y][width-1] = blankCell()
			}
		}
	}
	s.lines = lines
	s.width, s.height = width, height
	s.cursorX = clamp(s.cursorX, 0, width)
	s.cursorY = clamp(s.cursorY, 0, height-1)
	return nil
}

// Reset blanks the screen and restores initial state.
func (s *Screen) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for y := range s.lines {
		s.lines[y] = blankLine(s.width)
	}
	s.cursorX, s.cursorY = 0, 0
	s.fg, s.bg, s.attrs = ColorDefault, ColorDefault, 0
	s.cursorVisible = true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
