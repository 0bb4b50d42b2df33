package terminal

import (
	"unicode/utf8"
)

type parserState int

const (
	stateGround parserState = iota
	stateEscape
	stateCSI
	stateOSC
	stateOSCEscape
)

// Parser feeds bytes into a Screen, interpreting control characters and
// escape sequences. Unsupported sequences are consumed and ignored.
type Parser struct {
	screen *Screen

	state   parserState
	params  []int
	private bool

	// partial UTF-8 sequence carried between Parse calls
	utf8Buf []byte

	onUnknown func(seq string)
}

// NewParser creates a parser that draws into screen.
func NewParser(screen *Screen) *Parser {
	return &Parser{
		screen:  screen,
		params:  make([]int, 0, 8),
		utf8Buf: make([]byte, 0, utf8.UTFMax),
	}
}

// SetUnknownCallback registers a function that receives sequences the
// parser does not implement.
func (p *Parser) SetUnknownCallback(fn func(seq string)) {
	p.onUnknown = fn
}

// Parse interprets data.
func (p *Parser) Parse(data []byte) {
	for _, b := range data {
		p.processByte(b)
	}
}

// ParseString interprets s.
func (p *Parser) ParseString(s string) {
	p.Parse([]byte(s))
}

func (p *Parser) processByte(b byte) {
	switch p.state {
	case stateGround:
		p.processGround(b)
	case stateEscape:
		p.processEscape(b)
	case stateCSI:
		p.processCSI(b)
	case stateOSC:
		switch b {
		case 0x07:
			p.state = stateGround
		case 0x1B:
			p.state = stateOSCEscape
		}
	case stateOSCEscape:
		// ESC \ terminates; anything else is swallowed with it
		p.state = stateGround
	}
}

func (p *Parser) processGround(b byte) {
	if len(p.utf8Buf) > 0 || b >= 0x80 {
		p.processUTF8(b)
		return
	}

	switch {
	case b == 0x1B:
		p.state = stateEscape
	case b == '\b':
		p.screen.MoveCursorRelative(-1, 0)
	case b == '\t':
		x, y := p.screen.Cursor()
		p.screen.MoveCursor((x/8+1)*8, y)
	case b == '\n', b == '\v', b == '\f':
		p.screen.LineFeed()
	case b == '\r':
		p.screen.CarriageReturn()
	case b >= 0x20 && b < 0x7F:
		p.screen.WriteRune(rune(b))
	}
}

func (p *Parser) processUTF8(b byte) {
	if len(p.utf8Buf) > 0 && !utf8.RuneStart(b) {
		p.utf8Buf = append(p.utf8Buf, b)
	} else {
		if len(p.utf8Buf) > 0 {
			// A new sequence started before the old one finished
			p.utf8Buf = p.utf8Buf[:0]
			p.screen.WriteRune(utf8.RuneError)
		}
		if b < 0x80 {
			p.processGround(b)
			return
		}
		p.utf8Buf = append(p.utf8Buf, b)
	}

	if !utf8.FullRune(p.utf8Buf) {
		return
	}
	r, _ := utf8.DecodeRune(p.utf8Buf)
	p.utf8Buf = p.utf8Buf[:0]
	p.screen.WriteRune(r)
}

func (p *Parser) processEscape(b byte) {
	p.state = stateGround
	switch b {
	case '[':
		p.params = p.params[:0]
		p.private = false
		p.state = stateCSI
	case ']':
		p.state = stateOSC
	case '7':
		p.screen.SaveCursor()
	case '8':
		p.screen.RestoreCursor()
	case 'D':
		p.screen.LineFeed()
	case 'E':
		p.screen.CarriageReturn()
		p.screen.LineFeed()
	case 'c':
		p.screen.Reset()
	default:
		p.unknown("ESC " + string(b))
	}
}

func (p *Parser) processCSI(b byte) {
	switch {
	case b >= '0' && b <= '9':
		if len(p.params) == 0 {
			p.params = append(p.params, 0)
		}
		last := len(p.params) - 1
		p.params[last] = p.params[last]*10 + int(b-'0')
	case b == ';':
		if len(p.params) == 0 {
			p.params = append(p.params, 0)
		}
		p.params = append(p.params, 0)
	case b == '?':
		p.private = true
	case b >= 0x40 && b <= 0x7E:
		p.handleCSI(b)
		p.state = stateGround
	case b >= 0x20 && b <= 0x2F:
		// intermediate bytes are not used by any supported sequence
	default:
		p.state = stateGround
	}
}

func (p *Parser) handleCSI(final byte) {
	switch final {
	case 'A':
		p.screen.MoveCursorRelative(0, -p.param(0, 1))
	case 'B':
		p.screen.MoveCursorRelative(0, p.param(0, 1))
	case 'C':
		p.screen.MoveCursorRelative(p.param(0, 1), 0)
	case 'D':
		p.screen.MoveCursorRelative(-p.param(0, 1), 0)
	case 'G':
		_, y := p.screen.Cursor()
		p.screen.MoveCursor(p.param(0, 1)-1, y)
	case 'H', 'f':
		p.screen.MoveCursor(p.param(1, 1)-1, p.param(0, 1)-1)
	case 'J':
		mode := p.param(0, 0)
		if mode == 3 {
			mode = EraseAll
		}
		p.screen.ClearScreen(mode)
	case 'K':
		p.screen.ClearLine(p.param(0, 0))
	case 'S':
		p.screen.ScrollUp(p.param(0, 1))
	case 's':
		p.screen.SaveCursor()
	case 'u':
		p.screen.RestoreCursor()
	case 'm':
		p.handleSGR()
	case 'h', 'l':
		if p.private && len(p.params) == 1 && p.params[0] == 25 {
			p.screen.SetCursorVisible(final == 'h')
			return
		}
		p.unknown("CSI " + string(final))
	default:
		p.unknown("CSI " + string(final))
	}
}

func (p *Parser) handleSGR() {
	if len(p.params) == 0 {
		p.screen.ResetStyle()
		return
	}
	for i := 0; i < len(p.params); i++ {
		n := p.params[i]
		switch {
		case n == 0:
			p.screen.ResetStyle()
		case n == 1:
			p.screen.SetAttr(AttrBold, true)
		case n == 2:
			p.screen.SetAttr(AttrDim, true)
		case n == 3:
			p.screen.SetAttr(AttrItalic, true)
		case n == 4:
			p.screen.SetAttr(AttrUnderline, true)
		case n == 7:
			p.screen.SetAttr(AttrReverse, true)
		case n == 22:
			p.screen.SetAttr(AttrBold|AttrDim, false)
		case n == 23:
			p.screen.SetAttr(AttrItalic, false)
		case n == 24:
			p.screen.SetAttr(AttrUnderline, false)
		case n == 27:
			p.screen.SetAttr(AttrReverse, false)
		case n >= 30 && n <= 37:
			p.screen.SetForeground(Color(n - 30))
		case n == 39:
			p.screen.SetForeground(ColorDefault)
		case n >= 40 && n <= 47:
			p.screen.SetBackground(Color(n - 40))
		case n == 49:
			p.screen.SetBackground(ColorDefault)
		case n >= 90 && n <= 97:
			p.screen.SetForeground(Color(n - 90 + 8))
		case n >= 100 && n <= 107:
			p.screen.SetBackground(Color(n - 100 + 8))
		case n == 38 || n == 48:
			// 38;5;n and 48;5;n select from the 256-color palette
			if i+2 < len(p.params) && p.params[i+1] == 5 {
				c := Color(clamp(p.params[i+2], 0, 255))
				if n == 38 {
					p.screen.SetForeground(c)
				} else {
					p.screen.SetBackground(c)
				}
				i += 2
			}
		}
	}
}

func (p *Parser) param(i, def int) int {
	if i < len(p.params) && p.params[i] > 0 {
		return p.params[i]
	}
	return def
}

func (p *Parser) unknown(seq string) {
	if p.onUnknown != nil {
		p.onUnknown(seq)
	}
}
